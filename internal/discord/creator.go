package discord

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/dispatchkit/pkg/cmd"
)

// Creator registers slash commands through the REST API.
type Creator struct {
	s *discordgo.Session
}

func NewCreator(s *discordgo.Session) *Creator {
	return &Creator{s: s}
}

func (c *Creator) Create(ctx context.Context, name, description string, options []cmd.OptionSpec, scopeID string) error {
	appID, err := c.appID(ctx)
	if err != nil {
		return err
	}
	_, err = c.s.ApplicationCommandCreate(appID, scopeID, applicationCommand(name, description, options), discordgo.WithContext(ctx))
	return withStatus(err)
}

func (c *Creator) appID(ctx context.Context) (string, error) {
	if c.s.State != nil && c.s.State.User != nil && c.s.State.User.ID != "" {
		return c.s.State.User.ID, nil
	}
	user, err := c.s.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return "", withStatus(err)
	}
	if user.ID == "" {
		return "", errors.New("application ID is unknown")
	}
	return user.ID, nil
}
