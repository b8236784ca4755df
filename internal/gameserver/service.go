// Package gameserver hosts the multiplayer game logic: the session
// registry, the dungeon registry, the join protocol, and the command
// dispatcher. All player-visible output is delivered through each
// session's outbox so broadcast fan-out never blocks on client I/O.
package gameserver

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/mudhost/internal/config"
	"github.com/cory-johannsen/mudhost/internal/frontend/telnet"
	"github.com/cory-johannsen/mudhost/internal/game/command"
	"github.com/cory-johannsen/mudhost/internal/game/session"
	"github.com/cory-johannsen/mudhost/internal/game/world"
	"github.com/cory-johannsen/mudhost/internal/storage"
)

// Prompter is the service's channel for synchronous questions to one
// client during the dungeon-selection protocol. The connection handler
// implements it by writing the menu and reading the next input line.
type Prompter interface {
	// PromptDungeon shows the dungeon menu and returns the raw answer.
	PromptDungeon(menu string) (string, error)
	// PromptTemplate shows the template menu and returns the raw answer.
	PromptTemplate(menu string) (string, error)
}

// dungeon is one registry entry: a graph plus its occupancy counter.
// Both are guarded by the entry's own mutex; the registry lock is never
// held while an entry lock is taken.
type dungeon struct {
	mu        sync.Mutex
	graph     *world.Graph
	occupancy int
}

// Service is the game host. It owns the session registry (with its
// username reverse index), the dungeon registry, and the dispatcher.
type Service struct {
	cfg       config.GameConfig
	log       *zap.Logger
	store     storage.Store
	templates []*world.Template
	registry  *command.Registry

	mu        sync.Mutex
	sessions  []*session.Session
	byUser    map[string]*session.Session
	dungeonOf map[string]int
	dungeons  []*dungeon
}

// NewService creates a game service over the given dungeon templates.
//
// Precondition: templates must be non-empty and validated; store may be
// nil for memory-only operation.
func NewService(cfg config.GameConfig, templates []*world.Template, store storage.Store, log *zap.Logger) (*Service, error) {
	if len(templates) == 0 {
		return nil, fmt.Errorf("at least one dungeon template is required")
	}
	return &Service{
		cfg:       cfg,
		log:       log,
		store:     store,
		templates: templates,
		registry:  command.DefaultRegistry(),
		byUser:    make(map[string]*session.Session),
		dungeonOf: make(map[string]int),
	}, nil
}

// Start prepares the dungeon registry: one dungeon per template, in
// template order, capped at the dungeon limit. When a store is
// configured each ordinal is restored from its saved snapshot if one
// exists, and saved player-created dungeons beyond the template count
// are restored too.
//
// Postcondition: At least one dungeon exists, or a non-nil error.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snaps map[int]world.Snapshot
	if s.store != nil {
		var err error
		snaps, err = s.store.LoadDungeons(ctx)
		if err != nil {
			return fmt.Errorf("loading dungeon snapshots: %w", err)
		}
	}

	count := len(s.templates)
	if count > s.cfg.MaxDungeons {
		count = s.cfg.MaxDungeons
	}
	for i := 0; i < count; i++ {
		if snap, ok := snaps[i]; ok {
			if err := s.restoreDungeon(i, snap); err != nil {
				return err
			}
			continue
		}
		g := s.templates[i].Build()
		s.dungeons = append(s.dungeons, &dungeon{graph: g})
		s.log.Info("created dungeon",
			zap.Int("ordinal", i),
			zap.String("type", g.Label),
			zap.Int("locations", g.LocationCount()))
	}

	for i := count; i < s.cfg.MaxDungeons; i++ {
		snap, ok := snaps[i]
		if !ok {
			break
		}
		if err := s.restoreDungeon(i, snap); err != nil {
			return err
		}
	}
	return nil
}

// restoreDungeon rebuilds one registry entry from its saved snapshot.
// Callers hold the registry lock.
func (s *Service) restoreDungeon(ordinal int, snap world.Snapshot) error {
	g, err := world.RestoreGraph(snap)
	if err != nil {
		return fmt.Errorf("restoring dungeon %d: %w", ordinal, err)
	}
	s.dungeons = append(s.dungeons, &dungeon{graph: g})
	s.log.Info("restored dungeon",
		zap.Int("ordinal", ordinal),
		zap.String("type", g.Label),
		zap.Int("locations", g.LocationCount()))
	return nil
}

// Shutdown snapshots all dungeons to the store, if one is configured.
// Connected sessions are snapshotted by their handlers on disconnect.
func (s *Service) Shutdown(ctx context.Context) error {
	if s.store == nil {
		return nil
	}

	s.mu.Lock()
	dungeons := append([]*dungeon(nil), s.dungeons...)
	s.mu.Unlock()

	for i, d := range dungeons {
		d.mu.Lock()
		snap := d.graph.Snapshot()
		d.mu.Unlock()
		if err := s.store.SaveDungeon(ctx, i, snap); err != nil {
			return fmt.Errorf("saving dungeon %d: %w", i, err)
		}
	}
	s.log.Info("saved dungeon snapshots", zap.Int("count", len(dungeons)))
	return nil
}

// PlayerCount returns the number of registered sessions.
func (s *Service) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// DungeonCount returns the number of dungeon instances in the registry.
func (s *Service) DungeonCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dungeons)
}

// DungeonOf returns the dungeon ordinal a username is playing in.
//
// Postcondition: Returns (ordinal, true) while the player is in a
// dungeon, or (0, false).
func (s *Service) DungeonOf(username string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ordinal, ok := s.dungeonOf[username]
	return ordinal, ok
}

// JoinServer registers a session and runs the dungeon-selection
// protocol until the player is placed in a dungeon.
//
// Precondition: sess must carry a non-empty username not yet registered.
// Postcondition: The session is Playing in a dungeon, or an error
// (ErrServerFull, ErrDuplicateIdentity, ErrAllDungeonsFull, or a
// prompt failure) and the session is left unregistered.
func (s *Service) JoinServer(ctx context.Context, sess *session.Session, prompter Prompter) error {
	s.mu.Lock()
	if len(s.sessions) >= s.cfg.MaxPlayers {
		s.mu.Unlock()
		s.push(sess, telnet.Colorize(telnet.Red, "Server is full! Please try again later."))
		return ErrServerFull
	}
	if _, taken := s.byUser[sess.Username]; taken {
		s.mu.Unlock()
		s.push(sess, telnet.Colorize(telnet.Red, "Sorry, a player with that username is already connected."))
		return fmt.Errorf("%w: %s", ErrDuplicateIdentity, sess.Username)
	}
	s.sessions = append(s.sessions, sess)
	s.byUser[sess.Username] = sess
	count := len(s.sessions)
	s.mu.Unlock()

	s.log.Info("player connecting",
		zap.String("username", sess.Username),
		zap.String("uid", sess.UID),
		zap.Int("players", count))

	s.pushClear(sess)
	s.push(sess, telnet.Colorize(telnet.Green, "Connection successful!"))

	if s.store != nil {
		s.restorePlayer(ctx, sess)
	}

	if err := s.selectAndJoin(ctx, sess, prompter); err != nil {
		s.unregister(sess)
		return err
	}
	return nil
}

// selectAndJoin runs the dungeon-selection loop: prompt for a choice,
// create or join a dungeon, and fall back to the first free dungeon on
// an invalid or full choice.
func (s *Service) selectAndJoin(ctx context.Context, sess *session.Session, prompter Prompter) error {
	for {
		sess.SetStatus(session.ChoosingDungeon)
		answer, err := prompter.PromptDungeon(s.DungeonMenu())
		sess.SetStatus(session.Idle)
		if err != nil {
			return fmt.Errorf("prompting dungeon choice: %w", err)
		}

		choice, convErr := strconv.Atoi(strings.TrimSpace(answer))
		if convErr != nil {
			return s.joinFirstFree(sess, "Invalid choice.")
		}

		s.mu.Lock()
		count := len(s.dungeons)
		s.mu.Unlock()

		if choice == count {
			if count >= s.cfg.MaxDungeons {
				s.push(sess, telnet.Colorize(telnet.Red, "Server maximum MUD count reached. Please choose one of the existing MUD's."))
				continue
			}
			ordinal, err := s.createDungeon(ctx, sess, prompter)
			if err != nil {
				return err
			}
			return s.joinDungeon(ordinal, sess)
		}

		if choice < 0 || choice > count {
			return s.joinFirstFree(sess, "Invalid choice.")
		}

		err = s.joinDungeon(choice, sess)
		switch {
		case err == nil:
			return nil
		case isFull(err):
			return s.joinFirstFree(sess, fmt.Sprintf("MUD %d is full.", choice))
		default:
			return err
		}
	}
}

// createDungeon prompts for a template, instantiates a fresh graph,
// appends it to the registry, and refreshes the menus of every other
// session still choosing.
//
// Postcondition: Returns the new dungeon's ordinal, or a prompt error.
func (s *Service) createDungeon(ctx context.Context, sess *session.Session, prompter Prompter) (int, error) {
	s.push(sess, telnet.Colorize(telnet.Blue, "Creating new MUD."))

	sess.SetStatus(session.ChoosingDungeon)
	answer, err := prompter.PromptTemplate(s.TemplateMenu())
	sess.SetStatus(session.Idle)
	if err != nil {
		return 0, fmt.Errorf("prompting template choice: %w", err)
	}

	idx, convErr := strconv.Atoi(strings.TrimSpace(answer))
	if convErr != nil || idx < 0 || idx >= len(s.templates) {
		idx = 0
	}

	s.mu.Lock()
	ordinal := len(s.dungeons)
	g := s.templates[idx].Build()
	s.dungeons = append(s.dungeons, &dungeon{graph: g})
	s.mu.Unlock()

	s.log.Info("created dungeon",
		zap.Int("ordinal", ordinal),
		zap.String("type", g.Label),
		zap.String("creator", sess.Username))

	s.RefreshPrompts(sess)
	return ordinal, nil
}

// joinFirstFree places the session in the lowest-ordinal dungeon with a
// free slot, announcing the fallback reason first.
func (s *Service) joinFirstFree(sess *session.Session, reason string) error {
	for {
		free := s.firstFreeDungeon()
		if free < 0 {
			s.push(sess, telnet.Colorize(telnet.Red, "All MUDs on this server are full, please try again later."))
			return ErrAllDungeonsFull
		}
		s.push(sess, telnet.Colorf(telnet.Red, "%s Joining first free MUD (%d)", reason, free))
		err := s.joinDungeon(free, sess)
		if isFull(err) {
			// Lost the slot to a concurrent join; look again.
			continue
		}
		return err
	}
}

// firstFreeDungeon returns the lowest ordinal with a free slot, or -1.
func (s *Service) firstFreeDungeon() int {
	s.mu.Lock()
	dungeons := append([]*dungeon(nil), s.dungeons...)
	s.mu.Unlock()

	for i, d := range dungeons {
		d.mu.Lock()
		free := d.occupancy < s.cfg.MaxDungeonPlayers
		d.mu.Unlock()
		if free {
			return i
		}
	}
	return -1
}

// joinDungeon places a session into the dungeon at the given ordinal.
// The occupancy check and increment happen atomically under the entry's
// lock, so the per-dungeon cap holds under concurrent joins.
//
// Postcondition: The session is Playing at the dungeon's start location
// and co-located players' views are refreshed, or ErrDungeonFull /
// ErrUnknownDungeon and nothing changed.
func (s *Service) joinDungeon(ordinal int, sess *session.Session) error {
	s.mu.Lock()
	if ordinal < 0 || ordinal >= len(s.dungeons) {
		s.mu.Unlock()
		return fmt.Errorf("%w: ordinal %d", ErrUnknownDungeon, ordinal)
	}
	d := s.dungeons[ordinal]
	s.mu.Unlock()

	d.mu.Lock()
	if d.occupancy >= s.cfg.MaxDungeonPlayers {
		d.mu.Unlock()
		return fmt.Errorf("%w: ordinal %d", ErrDungeonFull, ordinal)
	}
	d.occupancy++
	start := d.graph.Start
	d.graph.AddOccupant(start, sess.Username)
	info, err := d.graph.LocationInfo(start)
	d.mu.Unlock()
	if err != nil {
		return fmt.Errorf("rendering start location: %w", err)
	}

	s.mu.Lock()
	s.dungeonOf[sess.Username] = ordinal
	s.mu.Unlock()

	sess.SetLocation(start)
	sess.SetStatus(session.Playing)

	s.log.Info("player joined dungeon",
		zap.String("username", sess.Username),
		zap.Int("ordinal", ordinal))

	s.pushClear(sess)
	s.push(sess, telnet.Colorf(telnet.Green, "You have joined MUD %d", ordinal))
	s.push(sess, telnet.Colorize(telnet.Blue, stripName(info, sess.Username)))
	s.refreshViews(sess, refreshOpts{})
	return nil
}

// Leave takes the session out of its dungeon and re-runs the selection
// protocol. The vacated location is broadcast before the occupant entry
// is removed, so departing players see the leaver vanish rather than a
// stale view. A fresh map is granted for the next dungeon.
//
// Postcondition: The session is Playing in a (possibly different)
// dungeon, or an error and the session is out of every dungeon.
func (s *Service) Leave(ctx context.Context, sess *session.Session, prompter Prompter) error {
	ordinal, ok := s.DungeonOf(sess.Username)
	if !ok {
		return ErrNotPlaying
	}

	s.log.Info("player leaving dungeon",
		zap.String("username", sess.Username),
		zap.Int("ordinal", ordinal))

	sess.SetStatus(session.Idle)
	s.vacateDungeon(sess, ordinal)
	sess.SetLocation("")
	sess.ClearInventory()
	sess.AddItem("map")

	return s.selectAndJoin(ctx, sess, prompter)
}

// vacateDungeon decrements the dungeon's counter, broadcasts the
// departure to co-located players, and only then removes the occupant
// entry and the reverse-index mapping.
func (s *Service) vacateDungeon(sess *session.Session, ordinal int) {
	s.mu.Lock()
	d := s.dungeons[ordinal]
	s.mu.Unlock()

	d.mu.Lock()
	d.occupancy--
	d.mu.Unlock()

	s.refreshViews(sess, refreshOpts{leaving: true})

	d.mu.Lock()
	d.graph.RemoveOccupant(sess.Location(), sess.Username)
	d.mu.Unlock()

	s.mu.Lock()
	delete(s.dungeonOf, sess.Username)
	s.mu.Unlock()
}

// PlayerDisconnect removes a session from its dungeon and the registry.
// Safe to call more than once for the same session: the session UID
// identifies the registered connection, so only the first call for a
// still-registered UID has any effect and the occupancy counter is
// decremented exactly once per connection.
func (s *Service) PlayerDisconnect(ctx context.Context, sess *session.Session) {
	s.mu.Lock()
	registered, ok := s.byUser[sess.Username]
	if !ok || registered.UID != sess.UID {
		s.mu.Unlock()
		return
	}
	ordinal, inDungeon := s.dungeonOf[sess.Username]
	s.mu.Unlock()

	s.log.Info("player disconnecting",
		zap.String("username", sess.Username),
		zap.String("uid", sess.UID))

	if s.store != nil {
		if err := s.store.SavePlayer(ctx, sess.Snapshot()); err != nil {
			s.log.Warn("saving player snapshot",
				zap.String("username", sess.Username),
				zap.Error(err))
		}
	}

	if inDungeon {
		s.vacateDungeon(sess, ordinal)
	}
	s.unregister(sess)
	sess.SetStatus(session.Idle)

	s.log.Info("players on server", zap.Int("players", s.PlayerCount()))
}

// unregister removes the session from the registry and reverse indexes.
// A matching UID proves the caller holds the registered connection, not
// a stale one for a reused username.
func (s *Service) unregister(sess *session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if registered, ok := s.byUser[sess.Username]; !ok || registered.UID != sess.UID {
		return
	}
	delete(s.byUser, sess.Username)
	delete(s.dungeonOf, sess.Username)
	for i, other := range s.sessions {
		if other.UID == sess.UID {
			s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
			break
		}
	}
}

// restorePlayer reloads a saved inventory for a returning username.
// A missing snapshot is the normal first-connection case.
func (s *Service) restorePlayer(ctx context.Context, sess *session.Session) {
	snap, err := s.store.LoadPlayer(ctx, sess.Username)
	if err != nil {
		if !isNotFound(err) {
			s.log.Warn("loading player snapshot",
				zap.String("username", sess.Username),
				zap.Error(err))
		}
		return
	}
	sess.RestoreInventory(snap.Inventory)
	s.log.Info("restored player snapshot",
		zap.String("username", sess.Username),
		zap.Int("items", len(snap.Inventory)))
}

// dungeonFor returns the registry entry the username is playing in.
func (s *Service) dungeonFor(username string) (*dungeon, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ordinal, ok := s.dungeonOf[username]
	if !ok {
		return nil, 0, false
	}
	return s.dungeons[ordinal], ordinal, true
}

// liveUsernames returns all connected usernames. Used by the item
// visibility check to exclude player identities from location text.
func (s *Service) liveUsernames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.byUser))
	for name := range s.byUser {
		names = append(names, name)
	}
	return names
}

// push delivers one line of text to a session, logging delivery failures.
func (s *Service) push(sess *session.Session, text string) {
	if err := sess.Outbox().Push(session.Payload{Text: text}); err != nil {
		s.log.Warn("dropping outbound text",
			zap.String("username", sess.Username),
			zap.Error(err))
	}
}

// pushPrompt delivers text without a trailing newline.
func (s *Service) pushPrompt(sess *session.Session, text string) {
	if err := sess.Outbox().Push(session.Payload{Text: text, Prompt: true}); err != nil {
		s.log.Warn("dropping outbound prompt",
			zap.String("username", sess.Username),
			zap.Error(err))
	}
}

// pushClear asks the client to reset its display.
func (s *Service) pushClear(sess *session.Session) {
	if err := sess.Outbox().Push(session.Payload{Clear: true}); err != nil {
		s.log.Warn("dropping clear request",
			zap.String("username", sess.Username),
			zap.Error(err))
	}
}

// stripName removes a player identity from rendered location text so
// players never see themselves listed.
func stripName(info, name string) string {
	return strings.ReplaceAll(info, name, "")
}

func isFull(err error) bool {
	return errors.Is(err, ErrDungeonFull)
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrSnapshotNotFound)
}

// now is indirected for tests that pin message ages.
var now = time.Now
