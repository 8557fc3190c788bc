package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xiaowei-guan/pigeon/channel"
	"github.com/xiaowei-guan/pigeon/internal/discriminant"
)

// ChannelsOptions holds flags for the channels command.
type ChannelsOptions struct {
	*RootOptions
	Prefix string // channel name prefix
}

// ChannelTable lists the wire surface of every interface.
type ChannelTable struct {
	Prefix     string           `json:"prefix"`
	Interfaces []InterfaceTable `json:"interfaces"`
}

// InterfaceTable is the wire surface of one interface.
type InterfaceTable struct {
	Name          string               `json:"name"`
	Role          string               `json:"role"`
	Channels      []ChannelEntry       `json:"channels"`
	Discriminants []discriminant.Entry `json:"discriminants"`
}

// ChannelEntry is one method channel.
type ChannelEntry struct {
	Method   string `json:"method"`
	Channel  string `json:"channel"`
	Async    bool   `json:"async,omitempty"`
	Dispatch string `json:"dispatch"`
}

// NewChannelsCommand creates the channels command.
func NewChannelsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ChannelsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "channels <input-dir>",
		Short: "List channel names and record discriminants",
		Long: `Print the channel name of every method and the discriminant assigned
to every record each interface sends, as every backend will generate them.

Examples:
  pigeon channels ./pigeons
  pigeon channels ./pigeons --prefix com.example
  pigeon channels ./pigeons --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChannels(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Prefix, "prefix", channel.DefaultPrefix, "channel name prefix")

	return cmd
}

func runChannels(opts *ChannelsOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loaded, err := loadDocument(formatter, dir)
	if err != nil {
		return err
	}
	doc := loaded.Document

	table := ChannelTable{Prefix: opts.Prefix, Interfaces: []InterfaceTable{}}
	for i := range doc.Interfaces {
		iface := &doc.Interfaces[i]
		entries, err := discriminant.Assign(iface, doc)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeValidation, err.Error(), iface.Name)
		}

		it := InterfaceTable{
			Name:          iface.Name,
			Role:          iface.Role.String(),
			Channels:      make([]ChannelEntry, len(iface.Methods)),
			Discriminants: entries,
		}
		for j, m := range iface.Methods {
			it.Channels[j] = ChannelEntry{
				Method:   m.Name,
				Channel:  channel.Name(opts.Prefix, iface.Name, m.Name),
				Async:    m.IsAsynchronous,
				Dispatch: m.Dispatch.String(),
			}
		}
		table.Interfaces = append(table.Interfaces, it)
	}

	if formatter.JSON() {
		return formatter.Success(table)
	}

	w := formatter.Writer
	for _, it := range table.Interfaces {
		fmt.Fprintf(w, "%s (%s)\n", it.Name, it.Role)
		for _, c := range it.Channels {
			suffix := ""
			if c.Async {
				suffix = " async"
			}
			fmt.Fprintf(w, "  %-24s %s [%s%s]\n", c.Method, c.Channel, c.Dispatch, suffix)
		}
		for _, e := range it.Discriminants {
			fmt.Fprintf(w, "  %3d  %s\n", e.Code, e.Record)
		}
		fmt.Fprintln(w)
	}
	return nil
}
