//go:build ignore

// Command mock-uci simulates a UCI chess engine for integration tests.
//
// Environment variables:
//
//	MOCK_UCI_MODE=normal: answer go after MOCK_UCI_DELAY, answer stop at once
//	MOCK_UCI_MODE=silent: never answer go or stop
//	MOCK_UCI_MODE=slow: answer go after MOCK_UCI_DELAY, ignore stop
//	MOCK_UCI_MODE=stop-only: answer only when stop arrives
//	MOCK_UCI_MODE=no-uciok: omit uciok from the handshake
//	MOCK_UCI_MODE=exit-on-go: exit as soon as a search starts
//	MOCK_UCI_MODE=deaf: ignore quit, only a kill ends the process
//	MOCK_UCI_MODE=closed: close stdout immediately and keep running
//	MOCK_UCI_MODE=no-move: answer every search with "bestmove (none)"
//	MOCK_UCI_NAME / MOCK_UCI_AUTHOR: override the reported identity
//	MOCK_UCI_DELAY: milliseconds before answering go (default 50)
//	MOCK_UCI_MOVES: space separated moves played in turn
//	MOCK_UCI_TRANSCRIPT: file receiving every command line read
//	MOCK_UCI_ILLEGAL: move rejected by the "d" board printout
//	MOCK_UCI_CHECKERS: squares reported on the "Checkers:" line
//
// The board printed for "d" is fake: only the side to move and the move
// counters follow the moves of the last position command.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var (
	mode       = envOr("MOCK_UCI_MODE", "normal")
	name       = envOr("MOCK_UCI_NAME", "Deep Thought")
	author     = envOr("MOCK_UCI_AUTHOR", "D. Adams")
	transcript *os.File

	outMu sync.Mutex
)

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func emit(format string, args ...any) {
	outMu.Lock()
	defer outMu.Unlock()
	fmt.Fprintf(os.Stdout, format+"\n", args...)
}

func main() {
	if path := os.Getenv("MOCK_UCI_TRANSCRIPT"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err == nil {
			transcript = f
			defer f.Close()
		}
	}

	if mode == "closed" {
		os.Stdout.Close()
		time.Sleep(time.Minute)
		return
	}

	delay := 50 * time.Millisecond
	if ms, err := strconv.Atoi(os.Getenv("MOCK_UCI_DELAY")); err == nil {
		delay = time.Duration(ms) * time.Millisecond
	}
	moves := strings.Fields(os.Getenv("MOCK_UCI_MOVES"))
	ply := 0
	fen := startFEN

	var searchMu sync.Mutex
	searching := false
	answer := func() {
		searchMu.Lock()
		defer searchMu.Unlock()
		if !searching {
			return
		}
		searching = false
		if mode == "no-move" {
			emit("bestmove (none)")
			return
		}
		move := "e2e4"
		if len(moves) > 0 {
			move = moves[ply%len(moves)]
			ply++
		}
		emit("info depth 1 score cp 13 pv %s", move)
		emit("bestmove %s ponder e7e5", move)
	}

	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		line := sc.Text()
		if transcript != nil {
			fmt.Fprintln(transcript, line)
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "uci":
			emit("id name %s", name)
			emit("id author %s", author)
			emit("this line means nothing")
			emit("option name Hash type spin default 16 min 1 max 33554432")
			emit("option name Ponder type check default false")
			emit("option name Style type combo default Normal var Solid var Normal var Risky")
			emit("option name Debug Log File type string default <empty>")
			emit("option name Clear Hash type button")
			if mode != "no-uciok" {
				emit("uciok")
			}
		case "isready":
			emit("readyok")
		case "position":
			fen = positionFEN(fields[1:])
		case "d":
			if mode == "silent" {
				continue
			}
			emit(" +---+---+---+---+---+---+---+---+")
			emit("Fen: %s", fen)
			emit("Key: 8F8F01D4562F59FB")
			emit("Checkers: %s", os.Getenv("MOCK_UCI_CHECKERS"))
		case "go":
			if mode == "exit-on-go" {
				os.Exit(3)
			}
			searchMu.Lock()
			searching = true
			searchMu.Unlock()
			if mode == "normal" || mode == "slow" || mode == "no-move" {
				time.AfterFunc(delay, answer)
			}
		case "stop":
			if mode == "normal" || mode == "stop-only" || mode == "no-move" {
				answer()
			}
		case "quit":
			if mode != "deaf" {
				return
			}
		}
	}

	if mode == "deaf" {
		time.Sleep(time.Minute)
	}
}

// positionFEN advances the side to move and counters of the given position
// once per move, stopping at the illegal move like a real engine would.
func positionFEN(args []string) string {
	base := startFEN
	var moves []string
	if len(args) > 0 && args[0] == "fen" {
		end := len(args)
		for i, a := range args {
			if a == "moves" {
				end = i
				break
			}
		}
		base = strings.Join(args[1:end], " ")
		args = args[end:]
	} else if len(args) > 0 {
		args = args[1:]
	}
	if len(args) > 0 && args[0] == "moves" {
		moves = args[1:]
	}

	f := strings.Fields(base)
	if len(f) != 6 {
		return base
	}
	half, _ := strconv.Atoi(f[4])
	full, _ := strconv.Atoi(f[5])
	illegal := os.Getenv("MOCK_UCI_ILLEGAL")
	for _, m := range moves {
		if m == illegal {
			break
		}
		half++
		if f[1] == "w" {
			f[1] = "b"
		} else {
			f[1] = "w"
			full++
		}
	}
	f[4] = strconv.Itoa(half)
	f[5] = strconv.Itoa(full)
	return strings.Join(f, " ")
}
