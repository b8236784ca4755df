package gameserver

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/mudhost/internal/frontend/telnet"
	"github.com/cory-johannsen/mudhost/internal/game/command"
	"github.com/cory-johannsen/mudhost/internal/game/session"
)

// MakeMove processes one command line from a Playing session and
// delivers the results through outboxes.
//
// Precondition: sess must be Playing in a dungeon.
// Postcondition: Returns true when the player quit the server and the
// connection should close.
func (s *Service) MakeMove(ctx context.Context, sess *session.Session, prompter Prompter, line string) bool {
	res := command.Parse(line)
	cmd, ok := s.registry.Resolve(res.Command)
	if !ok || len(res.Args) < cmd.MinArgs {
		s.push(sess, telnet.Colorize(telnet.Red, command.HelpText(s.registry)))
		return false
	}

	switch cmd.Handler {
	case command.HandlerMove:
		s.handleMove(sess, res.Args[0])
	case command.HandlerPick:
		s.handlePick(sess, res.Args[0])
	case command.HandlerDrop:
		s.handleDrop(sess, res.Args[0])
	case command.HandlerLook:
		s.handleLook(sess)
	case command.HandlerInventory:
		s.handleInventory(sess)
	case command.HandlerShout:
		s.handleShout(sess, res.RawArgs)
	case command.HandlerWhisper:
		s.handleWhisper(sess, res.Args[0], strings.TrimSpace(strings.TrimPrefix(res.RawArgs, res.Args[0])))
	case command.HandlerLeave:
		if err := s.Leave(ctx, sess, prompter); err != nil {
			s.log.Warn("leave failed",
				zap.String("username", sess.Username),
				zap.Error(err))
		}
	case command.HandlerQuit:
		s.PlayerDisconnect(ctx, sess)
		s.push(sess, telnet.Colorize(telnet.Green, "Left server."))
		return true
	case command.HandlerHelp:
		s.push(sess, command.HelpText(s.registry))
	}
	return false
}

// handleMove walks the session along a route. A direction with no
// route out of the current location leaves the player in place. The
// vacated location is refreshed before the session's location changes,
// then the destination is refreshed including the mover.
func (s *Service) handleMove(sess *session.Session, direction string) {
	d, _, ok := s.dungeonFor(sess.Username)
	if !ok {
		return
	}
	cur := sess.Location()

	d.mu.Lock()
	loc, found := d.graph.Location(cur)
	if !found {
		d.mu.Unlock()
		return
	}
	if _, routed := loc.Routes[direction]; !routed {
		d.mu.Unlock()
		s.push(sess, telnet.Colorize(telnet.Red, "There is no path in that direction!"))
		return
	}
	newLoc := d.graph.MoveOccupant(cur, direction, sess.Username)
	d.mu.Unlock()

	s.log.Info("player moving",
		zap.String("username", sess.Username),
		zap.String("direction", direction))

	s.refreshViews(sess, refreshOpts{})
	sess.SetLocation(newLoc)
	s.refreshViews(sess, refreshOpts{includeActor: true, noPrompt: true})
}

// handlePick transfers an item from the location to the inventory. The
// visibility test works on the rendered location text with player
// identities excluded, so a player cannot be picked up but an item name
// appearing anywhere in the rendered text passes.
func (s *Service) handlePick(sess *session.Session, item string) {
	d, _, ok := s.dungeonFor(sess.Username)
	if !ok {
		return
	}
	cur := sess.Location()
	players := s.liveUsernames()

	d.mu.Lock()
	picked := d.graph.ItemVisible(cur, players, item)
	if picked {
		d.graph.RemoveOccupant(cur, item)
	}
	d.mu.Unlock()

	if !picked {
		s.push(sess, telnet.Colorf(telnet.Red, "There is no %s here.", item))
		return
	}

	s.log.Info("player picking up item",
		zap.String("username", sess.Username),
		zap.String("item", item))

	sess.AddItem(item)
	s.push(sess, telnet.Colorf(telnet.Green, "%s added to inventory.", item))
	s.refreshViews(sess, refreshOpts{includeActor: true, noPrompt: true})
}

// handleDrop transfers an item from the inventory to the location.
func (s *Service) handleDrop(sess *session.Session, item string) {
	d, _, ok := s.dungeonFor(sess.Username)
	if !ok {
		return
	}
	if !sess.RemoveItem(item) {
		s.push(sess, telnet.Colorf(telnet.Red, "You're not carrying %s!", item))
		return
	}

	s.log.Info("player dropping item",
		zap.String("username", sess.Username),
		zap.String("item", item))

	d.mu.Lock()
	d.graph.AddOccupant(sess.Location(), item)
	d.mu.Unlock()

	s.push(sess, telnet.Colorf(telnet.Green, "%s removed from inventory.", item))
	s.refreshViews(sess, refreshOpts{includeActor: true, noPrompt: true})
}

// handleLook re-renders the current location for the requester only.
func (s *Service) handleLook(sess *session.Session) {
	d, _, ok := s.dungeonFor(sess.Username)
	if !ok {
		return
	}

	d.mu.Lock()
	info, err := d.graph.LocationInfo(sess.Location())
	d.mu.Unlock()
	if err != nil {
		s.log.Warn("rendering location view",
			zap.String("username", sess.Username),
			zap.Error(err))
		return
	}

	info = stripName(info, sess.Username)
	s.pushClear(sess)
	if strings.TrimSpace(info) == "" {
		s.push(sess, "You see nothing of interest here.")
		return
	}
	s.push(sess, info)
}

// handleInventory shows the current location and carried items to the
// requester only.
func (s *Service) handleInventory(sess *session.Session) {
	d, _, ok := s.dungeonFor(sess.Username)
	if !ok {
		return
	}

	d.mu.Lock()
	info, err := d.graph.LocationInfo(sess.Location())
	d.mu.Unlock()
	if err != nil {
		s.log.Warn("rendering location view",
			zap.String("username", sess.Username),
			zap.Error(err))
		return
	}

	s.pushClear(sess)
	s.push(sess, telnet.Colorize(telnet.Blue, stripName(info, sess.Username)))
	s.push(sess, telnet.Colorize(telnet.Blue, "Your inventory:"))
	for _, item := range sess.Inventory() {
		s.push(sess, telnet.Colorize(telnet.Blue, "-"+item))
	}
}

// handleShout appends the message to the mailbox of every player in
// the same dungeon and location, the shouter included, then refreshes
// the shouter's view so the message shows immediately.
func (s *Service) handleShout(sess *session.Session, message string) {
	ordinal, ok := s.DungeonOf(sess.Username)
	if !ok {
		return
	}
	loc := sess.Location()

	s.log.Info("player shouting",
		zap.String("username", sess.Username),
		zap.String("location", loc))

	s.mu.Lock()
	recipients := make([]*session.Session, 0, len(s.sessions))
	for _, other := range s.sessions {
		otherOrdinal, inDungeon := s.dungeonOf[other.Username]
		if !inDungeon || otherOrdinal != ordinal {
			continue
		}
		recipients = append(recipients, other)
	}
	s.mu.Unlock()

	for _, other := range recipients {
		if other.Location() != loc {
			continue
		}
		other.Mailbox().Add(sess.Username, message, session.Shout)
	}

	s.refreshViews(sess, refreshOpts{includeActor: true, noPrompt: true})
}

// handleWhisper delivers a private message to one player anywhere in
// the same dungeon and refreshes the target's view.
func (s *Service) handleWhisper(sess *session.Session, target, message string) {
	s.mu.Lock()
	targetSess, known := s.byUser[target]
	senderOrdinal, senderIn := s.dungeonOf[sess.Username]
	targetOrdinal, targetIn := s.dungeonOf[target]
	s.mu.Unlock()

	if !known {
		s.push(sess, telnet.Colorize(telnet.Red, "That username does not exist!"))
		return
	}
	if !senderIn || !targetIn || senderOrdinal != targetOrdinal {
		s.push(sess, telnet.Colorize(telnet.Red, "That player isn't in your MUD!"))
		return
	}

	s.log.Info("player whispering",
		zap.String("username", sess.Username),
		zap.String("target", target))

	targetSess.Mailbox().Add(sess.Username, message, session.Whisper)
	s.refreshViews(targetSess, refreshOpts{includeActor: true})
}
