package gameserver

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/mudhost/internal/frontend/telnet"
	"github.com/cory-johannsen/mudhost/internal/game/session"
)

// refreshOpts tunes one view-refresh broadcast.
type refreshOpts struct {
	// includeActor also refreshes the acting player's own view.
	includeActor bool
	// leaving hides the actor's identity in the broadcast text. Used
	// when the actor is departing but has not been removed from the
	// occupant list yet.
	leaving bool
	// noPrompt suppresses the trailing action prompt on the actor's
	// own refresh.
	noPrompt bool
}

// refreshViews redraws the location view for every Playing session
// co-located with the actor, then optionally for the actor itself.
// Recipients are gathered from a registry snapshot before anything is
// pushed, so no lock is held while payloads are queued. Delivery is
// per-recipient best effort.
func (s *Service) refreshViews(actor *session.Session, opts refreshOpts) {
	actorDungeon, ok := s.DungeonOf(actor.Username)
	if !ok {
		return
	}
	actorLoc := actor.Location()

	s.mu.Lock()
	recipients := make([]*session.Session, 0, len(s.sessions))
	for _, other := range s.sessions {
		if other == actor {
			continue
		}
		ordinal, inDungeon := s.dungeonOf[other.Username]
		if !inDungeon || ordinal != actorDungeon {
			continue
		}
		recipients = append(recipients, other)
	}
	d := s.dungeons[actorDungeon]
	s.mu.Unlock()

	for _, other := range recipients {
		if other.Status() != session.Playing || other.Location() != actorLoc {
			continue
		}
		d.mu.Lock()
		info, err := d.graph.LocationInfo(other.Location())
		d.mu.Unlock()
		if err != nil {
			s.log.Warn("rendering location view",
				zap.String("username", other.Username),
				zap.Error(err))
			continue
		}
		info = stripName(info, other.Username)
		if opts.leaving {
			info = stripName(info, actor.Username)
		}
		s.pushClear(other)
		s.push(other, telnet.Colorize(telnet.Blue, info))
		s.pushMailbox(other)
		s.push(other, telnet.Colorize(telnet.Blue, "What do you do?"))
		s.pushPrompt(other, telnet.Colorize(telnet.Blue, ">"))
	}

	if !opts.includeActor {
		return
	}
	d.mu.Lock()
	info, err := d.graph.LocationInfo(actor.Location())
	d.mu.Unlock()
	if err != nil {
		s.log.Warn("rendering location view",
			zap.String("username", actor.Username),
			zap.Error(err))
		return
	}
	s.pushClear(actor)
	s.push(actor, telnet.Colorize(telnet.Blue, stripName(info, actor.Username)))
	s.pushMailbox(actor)
	if !opts.noPrompt {
		s.push(actor, telnet.Colorize(telnet.Blue, "What do you do?"))
		s.pushPrompt(actor, telnet.Colorize(telnet.Blue, ">"))
	}
}

// pushMailbox renders the session's retained chat messages, shouts in
// yellow and whispers in magenta, with their age in seconds.
func (s *Service) pushMailbox(sess *session.Session) {
	ts := now()
	for _, msg := range sess.Mailbox().Messages() {
		color := telnet.Yellow
		if msg.Kind == session.Whisper {
			color = telnet.Magenta
		}
		s.push(sess, telnet.Colorize(color, msg.Render(ts)))
	}
}

// RefreshPrompts redraws the dungeon-selection menu for every session
// other than the actor that is still choosing, so a newly created
// dungeon appears as an option without the player re-entering the
// protocol.
func (s *Service) RefreshPrompts(actor *session.Session) {
	s.mu.Lock()
	recipients := append([]*session.Session(nil), s.sessions...)
	s.mu.Unlock()

	menu := s.DungeonMenu()
	for _, other := range recipients {
		if other == actor || other.Status() != session.ChoosingDungeon {
			continue
		}
		s.pushClear(other)
		s.push(other, telnet.Colorize(telnet.Blue, menu))
	}
}

// DungeonMenu renders the selection menu: one numbered line per
// dungeon, plus a create option while the registry has room.
func (s *Service) DungeonMenu() string {
	s.mu.Lock()
	count := len(s.dungeons)
	s.mu.Unlock()

	var b strings.Builder
	b.WriteString("\nWhich MUD to join?\n")
	b.WriteString("Options are: \n")
	for i := 0; i < count; i++ {
		fmt.Fprintf(&b, "%d) Join MUD %d\n", i, i)
	}
	if count < s.cfg.MaxDungeons {
		fmt.Fprintf(&b, "%d) New MUD\n", count)
	}
	return strings.TrimRight(b.String(), "\n")
}

// TemplateMenu renders the dungeon-creation menu, one numbered line per
// configured template.
func (s *Service) TemplateMenu() string {
	var b strings.Builder
	b.WriteString("\nWhich MUD to create?\n")
	b.WriteString("Options are: \n")
	for i, tmpl := range s.templates {
		fmt.Fprintf(&b, "%d) %s\n", i, tmpl.Type)
	}
	return strings.TrimRight(b.String(), "\n")
}
