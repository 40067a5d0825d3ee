// Copyright 2024 The EE119C Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command afe-shell is an interactive operator shell for the AFE
// data acquisition: it speaks the JSON control protocol of afe-svc.
package main // import "github.com/tpailevanian/EE119C/cmd/afe-shell"

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
)

var cmds = []string{
	"dump", "exit", "help", "init", "quit", "start", "status", "stop",
}

// shell verbs that are shorthands for a wire command.
var aliases = map[string]string{
	"init":   "initialize",
	"dump":   "dump-registers",
	"status": "dump-registers",
}

func main() {
	var (
		addr = flag.String("addr", "localhost:9999", "afe-svc [address]:port to dial")
		hist = flag.String("history", filepath.Join(os.TempDir(), ".afe_shell_history"), "path to the history file")
	)

	log.SetPrefix("afe-shell: ")
	log.SetFlags(0)

	flag.Parse()

	err := repl(*addr, *hist)
	if err != nil {
		log.Fatalf("could not run shell: %+v", err)
	}
}

func repl(addr, hist string) error {
	term := liner.NewLiner()
	defer term.Close()

	term.SetCtrlCAborts(true)
	term.SetCompleter(func(line string) []string {
		var o []string
		for _, cmd := range cmds {
			if strings.HasPrefix(cmd, strings.ToLower(line)) {
				o = append(o, cmd)
			}
		}
		return o
	})

	if f, err := os.Open(hist); err == nil {
		_, _ = term.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		f, err := os.Create(hist)
		if err != nil {
			log.Printf("could not save history: %+v", err)
			return
		}
		defer f.Close()
		_, _ = term.WriteHistory(f)
	}()

loop:
	for {
		raw, err := term.Prompt("afe> ")
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				fmt.Println()
				break loop
			}
			return fmt.Errorf("could not read prompt: %w", err)
		}

		toks := strings.Fields(raw)
		if len(toks) == 0 {
			continue
		}
		term.AppendHistory(raw)

		name := strings.ToLower(toks[0])
		switch name {
		case "quit", "exit":
			break loop
		case "help":
			usage(os.Stdout)
		default:
			if alias, ok := aliases[name]; ok {
				name = alias
			}
			msg, err := send(addr, name, toks[1:])
			if err != nil {
				log.Printf("could not send command %q: %+v", name, err)
				continue
			}
			fmt.Println(msg)
		}
	}
	return nil
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `commands:
  init          initialize the AFE board
  start RUN     start the acquisition of run RUN
  stop          stop the on-going acquisition
  status, dump  display the AFE readout registers
  help          display this help
  quit, exit    leave the shell
`)
}

// send dials the control service, sends one command and decodes the
// reply. The service closes the connection after a stop command, so
// each command uses a fresh connection.
func send(addr, name string, args []string) (string, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("could not dial afe-svc %q: %w", addr, err)
	}
	defer conn.Close()

	req := struct {
		Name string   `json:"name"`
		Args []string `json:"args,omitempty"`
	}{Name: name, Args: args}

	err = json.NewEncoder(conn).Encode(req)
	if err != nil {
		return "", fmt.Errorf("could not encode command %q: %w", name, err)
	}

	var rep struct {
		Msg string `json:"msg"`
	}
	err = json.NewDecoder(conn).Decode(&rep)
	if err != nil {
		return "", fmt.Errorf("could not decode reply: %w", err)
	}
	return rep.Msg, nil
}
