package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/peerpad/peerpad"
)

var HelpCreate = errors.New("create <doc-id> [initial text]")
var HelpUse = errors.New("use <session-id>")
var HelpJoin = errors.New("join <participant-id> [display name]")
var HelpLeave = errors.New("leave <participant-id>")
var HelpCursor = errors.New("cursor <line> <column>")
var HelpInsert = errors.New("insert <position> <text>")
var HelpDelete = errors.New("delete <position> <length>")
var HelpLoad = errors.New("load <session-id>")

func (repl *REPL) CommandHelp() {
	fmt.Println("create <doc-id> [text]   start a session on a fresh document")
	fmt.Println("sessions / use / close   list, select, tear down sessions")
	fmt.Println("join / leave / cursor    membership and presence")
	fmt.Println("insert / delete / show   edit and inspect the document")
	fmt.Println("watch                    print change events as they happen")
	fmt.Println("save / load / stored     snapshot checkpoints")
}

func (repl *REPL) CommandCreate(args []string) error {
	if len(args) < 1 {
		return HelpCreate
	}
	owner := peerpad.Participant{ID: repl.cfg.User.ID, Name: repl.cfg.User.Name}
	sess := repl.engine.CreateSession(args[0], strings.Join(args[1:], " "), owner)
	repl.current = sess.ID
	fmt.Printf("session %s on document %s\n", sess.ID, sess.DocumentID)
	return nil
}

func (repl *REPL) CommandSessions() error {
	for _, id := range repl.engine.Sessions() {
		marker := " "
		if id == repl.current {
			marker = "*"
		}
		sess, _ := repl.engine.Session(id)
		fmt.Printf("%s %s  doc=%s participants=%d\n",
			marker, id, sess.DocumentID, len(sess.Participants))
	}
	return nil
}

func (repl *REPL) CommandUse(args []string) error {
	if len(args) != 1 {
		return HelpUse
	}
	if _, ok := repl.engine.Session(args[0]); !ok {
		return peerpad.ErrSessionUnknown
	}
	repl.current = args[0]
	return nil
}

func (repl *REPL) CommandClose() error {
	if repl.current == "" {
		return ErrNoSession
	}
	if repl.unwatch != nil {
		repl.unwatch()
		repl.unwatch = nil
	}
	repl.engine.CloseSession(repl.current)
	fmt.Printf("session %s closed\n", repl.current)
	repl.current = ""
	return nil
}

func (repl *REPL) CommandJoin(args []string) error {
	if repl.current == "" {
		return ErrNoSession
	}
	if len(args) < 1 {
		return HelpJoin
	}
	name := strings.Join(args[1:], " ")
	if name == "" {
		name = args[0]
	}
	return repl.engine.JoinSession(repl.current, peerpad.Participant{
		ID:   args[0],
		Name: name,
	})
}

func (repl *REPL) CommandLeave(args []string) error {
	if repl.current == "" {
		return ErrNoSession
	}
	if len(args) != 1 {
		return HelpLeave
	}
	repl.engine.LeaveSession(repl.current, args[0])
	return nil
}

func (repl *REPL) CommandCursor(args []string) error {
	if repl.current == "" {
		return ErrNoSession
	}
	if len(args) != 2 {
		return HelpCursor
	}
	line, err := strconv.Atoi(args[0])
	if err != nil {
		return HelpCursor
	}
	col, err := strconv.Atoi(args[1])
	if err != nil {
		return HelpCursor
	}
	repl.engine.UpdateCursor(repl.current, repl.cfg.User.ID,
		peerpad.Cursor{Line: line, Column: col})
	return nil
}

func (repl *REPL) CommandInsert(args []string) error {
	if repl.current == "" {
		return ErrNoSession
	}
	if len(args) < 2 {
		return HelpInsert
	}
	pos, err := strconv.Atoi(args[0])
	if err != nil {
		return HelpInsert
	}
	_, err = repl.engine.ApplyLocal(repl.current, peerpad.Update{
		Origin:   repl.cfg.User.ID,
		Kind:     peerpad.OpInsert,
		Position: pos,
		Text:     strings.Join(args[1:], " "),
	})
	return err
}

func (repl *REPL) CommandDelete(args []string) error {
	if repl.current == "" {
		return ErrNoSession
	}
	if len(args) != 2 {
		return HelpDelete
	}
	pos, err := strconv.Atoi(args[0])
	if err != nil {
		return HelpDelete
	}
	length, err := strconv.Atoi(args[1])
	if err != nil {
		return HelpDelete
	}
	_, err = repl.engine.ApplyLocal(repl.current, peerpad.Update{
		Origin:   repl.cfg.User.ID,
		Kind:     peerpad.OpDelete,
		Position: pos,
		Length:   length,
	})
	return err
}

func (repl *REPL) CommandShow() error {
	if repl.current == "" {
		return ErrNoSession
	}
	doc, ok := repl.engine.Document(repl.current)
	if !ok {
		return peerpad.ErrSessionUnknown
	}
	sess, _ := repl.engine.Session(repl.current)
	fmt.Printf("%s\n", doc.Content())
	fmt.Printf("version=%d clock=%s digest=%016x\n",
		doc.Version(), doc.Clock().String(), doc.Digest())
	for _, p := range sess.Participants {
		state := "offline"
		if p.Online {
			state = "online"
		}
		fmt.Printf("  %s (%s) %s\n", p.ID, p.Name, state)
	}
	return nil
}

func (repl *REPL) CommandWatch() error {
	if repl.current == "" {
		return ErrNoSession
	}
	if repl.unwatch != nil {
		repl.unwatch()
	}
	repl.unwatch = repl.engine.Subscribe(repl.current, func(ev peerpad.Event) {
		fmt.Printf("[%s] %s by %s\n", ev.Timestamp.Format("15:04:05"),
			ev.Kind, ev.ParticipantID)
	})
	fmt.Println("watching (until close or next watch)")
	return nil
}

func (repl *REPL) CommandSave() error {
	if repl.current == "" {
		return ErrNoSession
	}
	data, err := repl.engine.Serialize(repl.current)
	if err != nil {
		return err
	}
	if err = repl.store.Save(repl.current, data); err != nil {
		return err
	}
	fmt.Printf("saved %d bytes\n", len(data))
	return nil
}

func (repl *REPL) CommandLoad(args []string) error {
	if len(args) != 1 {
		return HelpLoad
	}
	data, err := repl.store.Load(args[0])
	if err != nil {
		return err
	}
	id, err := repl.engine.Deserialize(data)
	if err != nil {
		return err
	}
	repl.current = id
	fmt.Printf("restored session %s\n", id)
	return nil
}

func (repl *REPL) CommandStored() error {
	ids, err := repl.store.List()
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}
