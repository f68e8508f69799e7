package cli

import (
	"fmt"

	"github.com/soyeahso/twitchbot/internal/processor"
	"github.com/soyeahso/twitchbot/internal/tags"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// tagReport is the printed form of a tags.Reader.
type tagReport struct {
	DisplayName string       `yaml:"displayName"`
	Color       string       `yaml:"color,omitempty"`
	Badges      []string     `yaml:"badges,omitempty"`
	Bits        int64        `yaml:"bits,omitempty"`
	Emotes      []tags.Emote `yaml:"emotes,omitempty"`
	EmoteOnly   bool         `yaml:"emoteOnly"`
	MessageID   string       `yaml:"messageId,omitempty"`
	RoomID      int64        `yaml:"roomId,omitempty"`
	UserID      int64        `yaml:"userId,omitempty"`
	UserType    string       `yaml:"userType"`
	SentAt      int64        `yaml:"sentAt,omitempty"`
	Mod         bool         `yaml:"mod"`
	Subscriber  bool         `yaml:"subscriber"`
	Turbo       bool         `yaml:"turbo"`
	Broadcaster bool         `yaml:"isBroadcaster"`
	IsMod       bool         `yaml:"isMod"`
	IsSub       bool         `yaml:"isSubscriber"`
}

func reportTags(r *tags.Reader) tagReport {
	return tagReport{
		DisplayName: r.DisplayName(),
		Color:       r.Color(),
		Badges:      r.Badges(),
		Bits:        r.Bits(),
		Emotes:      r.Emotes(),
		EmoteOnly:   r.IsEmoteOnly(),
		MessageID:   r.MessageID(),
		RoomID:      r.RoomID(),
		UserID:      r.UserID(),
		UserType:    r.UserType().String(),
		SentAt:      r.SentAt(),
		Mod:         r.Mod(),
		Subscriber:  r.Subscriber(),
		Turbo:       r.Turbo(),
		Broadcaster: r.IsBroadcaster(),
		IsMod:       r.IsMod(),
		IsSub:       r.IsSubscriber(),
	}
}

func newTagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags <raw>",
		Short: "Parse an IRCv3 tag string and print the Twitch fields",
		Example: `  twitchbot tags '@badges=moderator/1;display-name=Alice;emotes=25:0-4'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := tags.NewReader(tags.Parse(args[0], log), log)
			data, err := yaml.Marshal(reportTags(r))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func newTriggerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trigger <text>",
		Short: "Print the trigger a chat line dispatches to",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			trigger, ok := processor.ExtractTrigger(args[0])
			switch {
			case !ok:
				fmt.Fprintln(cmd.OutOrStdout(), "(no trigger)")
			case trigger == "":
				fmt.Fprintln(cmd.OutOrStdout(), "(empty trigger)")
			default:
				fmt.Fprintln(cmd.OutOrStdout(), trigger)
			}
		},
	}
}
