// Package command provides the command grammar: the line parser, the
// registry of player-invocable commands, and the help text.
package command

import (
	"fmt"
	"sort"
	"strings"
)

// Categories for organizing commands.
const (
	CategoryMovement      = "movement"
	CategoryWorld         = "world"
	CategoryCommunication = "communication"
	CategorySystem        = "system"
)

// Handler identifiers mapping commands to dispatcher actions.
const (
	HandlerMove      = "move"
	HandlerPick      = "pick"
	HandlerDrop      = "drop"
	HandlerLook      = "look"
	HandlerInventory = "inventory"
	HandlerShout     = "shout"
	HandlerWhisper   = "whisper"
	HandlerLeave     = "leave"
	HandlerQuit      = "quit"
	HandlerHelp      = "help"
)

// Command defines a player-invocable command.
type Command struct {
	// Name is the canonical command name.
	Name string
	// Aliases are alternate names for this command.
	Aliases []string
	// Usage is the argument form shown in help (e.g. "move <direction>").
	Usage string
	// Help is the short help text displayed to players.
	Help string
	// Category groups the command for the help listing.
	Category string
	// Handler identifies the dispatcher action for this command.
	Handler string
	// MinArgs is the minimum number of arguments required.
	MinArgs int
}

// BuiltinCommands returns all built-in commands for the game.
func BuiltinCommands() []Command {
	return []Command{
		{Name: "move", Aliases: []string{"go"}, Usage: "move <direction>", Help: "Move along a route (e.g. move north)", Category: CategoryMovement, Handler: HandlerMove, MinArgs: 1},

		{Name: "pick", Aliases: []string{"take"}, Usage: "pick <item>", Help: "Pick up an item from your location", Category: CategoryWorld, Handler: HandlerPick, MinArgs: 1},
		{Name: "drop", Aliases: nil, Usage: "drop <item>", Help: "Drop an item from your inventory", Category: CategoryWorld, Handler: HandlerDrop, MinArgs: 1},
		{Name: "look", Aliases: []string{"l"}, Usage: "look", Help: "Look around your current location", Category: CategoryWorld, Handler: HandlerLook},
		{Name: "inventory", Aliases: []string{"inv", "i"}, Usage: "inventory", Help: "Show your location and what you are carrying", Category: CategoryWorld, Handler: HandlerInventory},

		{Name: "shout", Aliases: nil, Usage: "shout <message>", Help: "Shout to everyone at your location", Category: CategoryCommunication, Handler: HandlerShout, MinArgs: 1},
		{Name: "whisper", Aliases: []string{"tell"}, Usage: "whisper <user> <message>", Help: "Whisper to a player in your dungeon", Category: CategoryCommunication, Handler: HandlerWhisper, MinArgs: 2},

		{Name: "leave", Aliases: nil, Usage: "leave", Help: "Leave this dungeon and choose another", Category: CategorySystem, Handler: HandlerLeave},
		{Name: "quit", Aliases: []string{"exit"}, Usage: "quit", Help: "Disconnect from the server", Category: CategorySystem, Handler: HandlerQuit},
		{Name: "help", Aliases: []string{"?"}, Usage: "help", Help: "Show available commands", Category: CategorySystem, Handler: HandlerHelp},
	}
}

// HelpText renders the command listing shown for help requests and
// unrecognized input.
func HelpText(r *Registry) string {
	byCategory := r.CommandsByCategory()
	categories := make([]string, 0, len(byCategory))
	for cat := range byCategory {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	var b strings.Builder
	b.WriteString("Available commands:\n")
	for _, cat := range categories {
		cmds := byCategory[cat]
		sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
		for _, cmd := range cmds {
			fmt.Fprintf(&b, "  %-26s %s\n", cmd.Usage, cmd.Help)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
