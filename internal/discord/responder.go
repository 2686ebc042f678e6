package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/dispatchkit/pkg/cmd"
)

// Responder sends replies back on the surface an event came from.
type Responder struct {
	s *discordgo.Session
}

func NewResponder(s *discordgo.Session) *Responder {
	return &Responder{s: s}
}

func (r *Responder) Reply(ctx context.Context, ev *cmd.Event, reply cmd.Reply, ephemeral bool) error {
	switch raw := ev.Raw.(type) {
	case *discordgo.MessageCreate:
		msg, err := messageSend(reply)
		if err != nil {
			return err
		}
		if msg.Reference == nil {
			msg.Reference = raw.Reference()
		}
		_, err = r.s.ChannelMessageSendComplex(raw.ChannelID, msg, discordgo.WithContext(ctx))
		return withStatus(err)
	case *discordgo.InteractionCreate:
		data, err := interactionData(reply, ephemeral)
		if err != nil {
			return err
		}
		err = r.s.InteractionRespond(raw.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: data,
		}, discordgo.WithContext(ctx))
		return withStatus(err)
	}
	return fmt.Errorf("cannot reply to event of type %T", ev.Raw)
}

// statusError exposes the HTTP status of a Discord REST failure so the retry
// classifier can tell pushback from rejection.
type statusError struct {
	code int
	err  error
}

func (e *statusError) Error() string   { return e.err.Error() }
func (e *statusError) Unwrap() error   { return e.err }
func (e *statusError) StatusCode() int { return e.code }

func withStatus(err error) error {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		return &statusError{code: rest.Response.StatusCode, err: err}
	}
	return err
}
