package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/dispatchkit/pkg/cmd"
)

// EmbedColor is used for blocks that set no color.
const EmbedColor = 0xb01e66

var optionTypes = map[cmd.TypeTag]discordgo.ApplicationCommandOptionType{
	cmd.TypeString:      discordgo.ApplicationCommandOptionString,
	cmd.TypeInteger:     discordgo.ApplicationCommandOptionInteger,
	cmd.TypeNumber:      discordgo.ApplicationCommandOptionNumber,
	cmd.TypeBoolean:     discordgo.ApplicationCommandOptionBoolean,
	cmd.TypeUser:        discordgo.ApplicationCommandOptionUser,
	cmd.TypeChannel:     discordgo.ApplicationCommandOptionChannel,
	cmd.TypeRole:        discordgo.ApplicationCommandOptionRole,
	cmd.TypeMentionable: discordgo.ApplicationCommandOptionMentionable,
	cmd.TypeAttachment:  discordgo.ApplicationCommandOptionAttachment,
}

func optionType(t cmd.TypeTag) discordgo.ApplicationCommandOptionType {
	if ot, ok := optionTypes[t]; ok {
		return ot
	}
	return discordgo.ApplicationCommandOptionString
}

// applicationCommand builds the slash definition sent to Discord.
func applicationCommand(name, description string, options []cmd.OptionSpec) *discordgo.ApplicationCommand {
	ac := &discordgo.ApplicationCommand{
		Name:        name,
		Description: description,
		Type:        discordgo.ChatApplicationCommand,
	}
	for _, o := range options {
		ac.Options = append(ac.Options, &discordgo.ApplicationCommandOption{
			Type:        optionType(o.Type),
			Name:        o.Name,
			Description: o.Description,
			Required:    o.Required,
		})
	}
	return ac
}

// messageEvent translates a gateway message. ok is false for messages the
// engine never sees, e.g. ones without an author.
func messageEvent(m *discordgo.MessageCreate) (*cmd.Event, bool) {
	if m == nil || m.Message == nil || m.Author == nil {
		return nil, false
	}
	return &cmd.Event{
		Surface:   cmd.SurfaceMessage,
		Content:   m.Content,
		Author:    cmd.Author{ID: m.Author.ID, Username: m.Author.Username, Bot: m.Author.Bot},
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		Raw:       m,
	}, true
}

// interactionEvent translates a chat-input application command interaction.
func interactionEvent(i *discordgo.InteractionCreate) (*cmd.Event, bool) {
	if i == nil || i.Interaction == nil || i.Type != discordgo.InteractionApplicationCommand {
		return nil, false
	}
	data := i.ApplicationCommandData()
	if data.CommandType != 0 && data.CommandType != discordgo.ChatApplicationCommand {
		return nil, false
	}

	ev := &cmd.Event{
		Surface:     cmd.SurfaceInteraction,
		CommandName: data.Name,
		GuildID:     i.GuildID,
		ChannelID:   i.ChannelID,
		Author:      interactionAuthor(i),
		Raw:         i,
	}
	for _, o := range data.Options {
		ev.Options = append(ev.Options, cmd.OptionValue{Name: o.Name, Value: o.Value})
	}
	return ev, true
}

func interactionAuthor(i *discordgo.InteractionCreate) cmd.Author {
	u := i.User
	if i.Member != nil && i.Member.User != nil {
		u = i.Member.User
	}
	if u == nil {
		return cmd.Author{}
	}
	return cmd.Author{ID: u.ID, Username: u.Username, Bot: u.Bot}
}

func embeds(blocks cmd.Blocks) []*discordgo.MessageEmbed {
	out := make([]*discordgo.MessageEmbed, 0, len(blocks))
	for _, b := range blocks {
		e := &discordgo.MessageEmbed{
			Title:       b.Title,
			Description: b.Description,
			URL:         b.URL,
			Color:       b.Color,
		}
		if e.Color == 0 {
			e.Color = EmbedColor
		}
		for _, f := range b.Fields {
			e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
		}
		if b.Footer != "" {
			e.Footer = &discordgo.MessageEmbedFooter{Text: b.Footer}
		}
		out = append(out, e)
	}
	return out
}

// messageSend renders r as a channel message.
func messageSend(r cmd.Reply) (*discordgo.MessageSend, error) {
	switch v := r.(type) {
	case cmd.Text:
		return &discordgo.MessageSend{Content: string(v)}, nil
	case cmd.Blocks:
		return &discordgo.MessageSend{Embeds: embeds(v)}, nil
	case cmd.Raw:
		switch p := v.Payload.(type) {
		case *discordgo.MessageSend:
			return p, nil
		case string:
			return &discordgo.MessageSend{Content: p}, nil
		}
		return nil, fmt.Errorf("raw payload %T cannot be sent as a message", v.Payload)
	}
	return nil, fmt.Errorf("unsupported reply %T", r)
}

// interactionData renders r as an interaction response.
func interactionData(r cmd.Reply, ephemeral bool) (*discordgo.InteractionResponseData, error) {
	var data *discordgo.InteractionResponseData
	switch v := r.(type) {
	case cmd.Text:
		data = &discordgo.InteractionResponseData{Content: string(v)}
	case cmd.Blocks:
		data = &discordgo.InteractionResponseData{Embeds: embeds(v)}
	case cmd.Raw:
		switch p := v.Payload.(type) {
		case *discordgo.InteractionResponseData:
			return p, nil
		case string:
			data = &discordgo.InteractionResponseData{Content: p}
		default:
			return nil, fmt.Errorf("raw payload %T cannot be sent as an interaction response", v.Payload)
		}
	default:
		return nil, fmt.Errorf("unsupported reply %T", r)
	}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return data, nil
}
