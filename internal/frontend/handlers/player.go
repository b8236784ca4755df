// Package handlers connects Telnet sessions to the game service: it
// prompts for an identity, registers the session, relays the outbox to
// the wire, and feeds command lines to the dispatcher.
package handlers

import (
	"context"
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/mudhost/internal/config"
	"github.com/cory-johannsen/mudhost/internal/frontend/telnet"
	"github.com/cory-johannsen/mudhost/internal/game/session"
	"github.com/cory-johannsen/mudhost/internal/gameserver"
)

// PlayerHandler is the telnet.SessionHandler for player connections.
type PlayerHandler struct {
	serverName string
	game       config.GameConfig
	svc        *gameserver.Service
	log        *zap.Logger
}

// NewPlayerHandler creates a handler backed by the given game service.
//
// Precondition: svc and log must be non-nil.
func NewPlayerHandler(serverName string, game config.GameConfig, svc *gameserver.Service, log *zap.Logger) *PlayerHandler {
	return &PlayerHandler{
		serverName: serverName,
		game:       game,
		svc:        svc,
		log:        log,
	}
}

// HandleSession runs one player connection from greeting to disconnect.
// A rejected username re-enters the identity prompt; a full server ends
// the session.
//
// Postcondition: The session, if it was ever registered, has been
// removed from the game service.
func (h *PlayerHandler) HandleSession(ctx context.Context, conn *telnet.Conn) error {
	if err := conn.WriteLine(telnet.Colorize(telnet.Cyan, "Welcome to "+h.serverName)); err != nil {
		return err
	}

	for {
		username, err := h.promptUsername(conn)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		sess := session.New(username, h.game.MailboxSize, h.game.OutboxBuffer)
		done := h.startWriter(conn, sess)
		prompter := &connPrompter{conn: conn, sess: sess, log: h.log}

		if err := h.svc.JoinServer(ctx, sess, prompter); err != nil {
			sess.Outbox().Close()
			<-done
			switch {
			case errors.Is(err, gameserver.ErrDuplicateIdentity):
				continue
			case errors.Is(err, gameserver.ErrServerFull), errors.Is(err, gameserver.ErrAllDungeonsFull):
				return nil
			default:
				return err
			}
		}

		loopErr := h.commandLoop(ctx, conn, sess, prompter)
		sess.Outbox().Close()
		<-done
		return loopErr
	}
}

// promptUsername asks for a non-empty identity.
func (h *PlayerHandler) promptUsername(conn *telnet.Conn) (string, error) {
	for {
		if err := conn.WriteLine(telnet.Colorize(telnet.Blue, "Enter a username:")); err != nil {
			return "", err
		}
		if err := conn.WritePrompt(telnet.Colorize(telnet.Blue, ">")); err != nil {
			return "", err
		}
		line, err := conn.ReadLine()
		if err != nil {
			return "", err
		}
		if username := strings.TrimSpace(line); username != "" {
			return username, nil
		}
	}
}

// startWriter launches the goroutine that relays outbox payloads to the
// connection. The returned channel closes when the outbox is drained or
// the connection write fails.
func (h *PlayerHandler) startWriter(conn *telnet.Conn, sess *session.Session) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range sess.Outbox().Drain() {
			var err error
			switch {
			case p.Clear:
				err = conn.Clear()
			case p.Prompt:
				err = conn.WritePrompt(p.Text)
			default:
				err = conn.WriteLine(p.Text)
			}
			if err != nil {
				h.log.Debug("connection write failed",
					zap.String("username", sess.Username),
					zap.Error(err))
				return
			}
		}
	}()
	return done
}

// commandLoop feeds input lines to the dispatcher until the player
// quits or the connection drops. Either way the session is removed from
// the game service before returning.
func (h *PlayerHandler) commandLoop(ctx context.Context, conn *telnet.Conn, sess *session.Session, prompter *connPrompter) error {
	for {
		line, err := conn.ReadLine()
		if err != nil {
			h.svc.PlayerDisconnect(ctx, sess)
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if h.svc.MakeMove(ctx, sess, prompter, line) {
			return nil
		}
	}
}

// connPrompter answers the game service's synchronous prompts. Menus
// go out through the session outbox so they serialize with broadcast
// output; the answer is the next line read from the connection.
type connPrompter struct {
	conn *telnet.Conn
	sess *session.Session
	log  *zap.Logger
}

func (p *connPrompter) PromptDungeon(menu string) (string, error) {
	return p.ask(menu)
}

func (p *connPrompter) PromptTemplate(menu string) (string, error) {
	return p.ask(menu)
}

func (p *connPrompter) ask(menu string) (string, error) {
	if err := p.sess.Outbox().Push(session.Payload{Text: telnet.Colorize(telnet.Blue, menu)}); err != nil {
		p.log.Warn("dropping menu", zap.String("username", p.sess.Username), zap.Error(err))
	}
	if err := p.sess.Outbox().Push(session.Payload{Text: telnet.Colorize(telnet.Blue, ">"), Prompt: true}); err != nil {
		p.log.Warn("dropping prompt", zap.String("username", p.sess.Username), zap.Error(err))
	}
	return p.conn.ReadLine()
}
