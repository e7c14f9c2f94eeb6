package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

type embedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordEmitter posts each finished draft to a reviewer channel.
type DiscordEmitter struct {
	session   *discordgo.Session
	sender    embedSender
	channelID string
}

func NewDiscordEmitter(botToken, channelID string) (*DiscordEmitter, error) {
	session, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	return &DiscordEmitter{session: session, sender: session, channelID: channelID}, nil
}

func (e *DiscordEmitter) Name() string { return "discord" }

func (e *DiscordEmitter) Emit(ctx context.Context, ev RunEvent) error {
	if _, err := e.sender.ChannelMessageSendEmbed(e.channelID, buildEmbed(ev), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	return nil
}

func (e *DiscordEmitter) Close() error {
	if e.session != nil {
		return e.session.Close()
	}
	return nil
}

const (
	embedDescriptionMax = 4096
	embedFieldMax       = 1024
)

func levelColor(level string) int {
	switch level {
	case "High":
		return 0x2ECC71
	case "Medium":
		return 0xF39C12
	}
	return 0xE74C3C
}

func buildEmbed(ev RunEvent) *discordgo.MessageEmbed {
	score := fmt.Sprintf("%.2f (%s)", ev.ConfidenceScore, ev.ConfidenceLevel)
	if ev.Capped {
		score += ", capped by guardrails"
	}
	if ev.JudgmentSkipped {
		score = "judgment skipped"
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "Phase", Value: ev.Phase, Inline: true},
		{Name: "Confidence", Value: score, Inline: true},
		{Name: "Checks", Value: ev.OverallStatus, Inline: true},
	}
	if len(ev.Warnings) > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  "Warnings",
			Value: truncate("- "+strings.Join(ev.Warnings, "\n- "), embedFieldMax),
		})
	}
	footer := "run " + ev.RunID
	if ev.Templated {
		footer += " · conservative template"
	}
	return &discordgo.MessageEmbed{
		Title:       truncate(ev.Title, 256),
		Description: truncate(ev.Message, embedDescriptionMax),
		Color:       levelColor(ev.ConfidenceLevel),
		Fields:      fields,
		Timestamp:   ev.Timestamp,
		Footer:      &discordgo.MessageEmbedFooter{Text: footer},
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
