// Package deck parses markdown deck files into card entries and derives
// stable content-hash identities for them.
package deck

import (
	"bufio"
	"io"
	"os"
	"strings"
)

const (
	promptPrefix = "Q:"
	answerPrefix = "A:"
)

// Entry is a prompt/answer pair read from a deck file, before it becomes
// a scheduled card.
type Entry struct {
	Prompt string
	Answer string
}

type state int

const (
	seeking state = iota
	readingPrompt
	readingAnswer
)

// ParseFile reads a deck file from the given path and extracts all entries.
func ParseFile(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads deck entries from r. An entry starts at a "Q:" line, its
// answer at an "A:" line; either may continue over following plain lines.
// A "---" line or the next "Q:" line ends the entry.
func Parse(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	var entries []Entry
	var current Entry
	var block []string
	currentState := seeking

	closeBlock := func() {
		if len(block) == 0 {
			return
		}
		content := strings.Join(block, "\n")
		switch currentState {
		case readingPrompt:
			current.Prompt = content
		case readingAnswer:
			current.Answer = content
		}
		block = nil
	}

	finishEntry := func() {
		closeBlock()
		if current.Prompt != "" {
			entries = append(entries, current)
		}
		current = Entry{}
		currentState = seeking
	}

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "---":
			finishEntry()

		case strings.HasPrefix(line, promptPrefix):
			if currentState != seeking {
				finishEntry()
			} else {
				closeBlock()
			}
			currentState = readingPrompt
			block = append(block, trimOneSpace(line, promptPrefix))

		case strings.HasPrefix(line, answerPrefix):
			closeBlock()
			currentState = readingAnswer
			block = append(block, trimOneSpace(line, answerPrefix))

		default:
			if currentState != seeking {
				block = append(block, line)
			}
		}
	}

	finishEntry()

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// trimOneSpace strips the prefix and at most one following space, so
// "Q: text" and "Q:text" both yield "text" while preserving deliberate
// extra indentation.
func trimOneSpace(line, prefix string) string {
	content := line[len(prefix):]
	if strings.HasPrefix(content, " ") {
		content = content[1:]
	}
	return content
}
