package errors

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
)

// Category groups diagnostics by the subsystem that raised them.
type Category string

const (
	CategoryDispatch Category = "dispatch"
	CategoryRender   Category = "render"
	CategoryTree     Category = "tree"
	CategoryProtocol Category = "protocol"
	CategorySession  Category = "session"
	CategoryJournal  Category = "journal"
	CategoryConfig   Category = "config"
	CategoryCLI      Category = "cli"
)

// Location is a position in a file.
type Location struct {
	File   string
	Line   int
	Column int
}

// String returns the location as file:line[:column].
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// KinesisError is a coded diagnostic wrapping the error it describes.
type KinesisError struct {
	// Code is the registered code, e.g. "K001".
	Code string

	Category Category

	// Message is a short description.
	Message string

	// Detail is a longer explanation.
	Detail string

	// Location is set for errors tied to a file, such as configuration.
	Location *Location

	// Context holds the file lines around Location.
	Context []string

	// Suggestion is a hint on how to fix or handle the error.
	Suggestion string

	DocURL string

	// Wrapped is the underlying error.
	Wrapped error
}

// Error implements the error interface.
func (e *KinesisError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *KinesisError) Unwrap() error {
	return e.Wrapped
}

// WithLocation points the error at a file position and loads the lines
// around it.
func (e *KinesisError) WithLocation(file string, line, column int) *KinesisError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context = readContextLines(file, line, 5)
	return e
}

var (
	yamlLine = regexp.MustCompile(`line (\d+)(?:, column (\d+))?`)
	jsonLine = regexp.MustCompile(`line (\d+), column (\d+)`)
)

// WithLocationFromError extracts a position from a decoder error in file.
// Both "yaml: line 3: ..." and the "line L, column C" form used for
// JSON syntax errors are understood; other errors leave e unchanged.
func (e *KinesisError) WithLocationFromError(file string, err error) *KinesisError {
	if err == nil {
		return e
	}
	for _, re := range []*regexp.Regexp{jsonLine, yamlLine} {
		m := re.FindStringSubmatch(err.Error())
		if m == nil {
			continue
		}
		line, _ := strconv.Atoi(m[1])
		col := 0
		if len(m) > 2 && m[2] != "" {
			col, _ = strconv.Atoi(m[2])
		}
		if line > 0 {
			return e.WithLocation(file, line, col)
		}
	}
	return e
}

// WithSuggestion adds a hint.
func (e *KinesisError) WithSuggestion(s string) *KinesisError {
	e.Suggestion = s
	return e
}

// WithDetail replaces the registered explanation.
func (e *KinesisError) WithDetail(d string) *KinesisError {
	e.Detail = d
	return e
}

// Wrap sets the underlying error.
func (e *KinesisError) Wrap(err error) *KinesisError {
	e.Wrapped = err
	return e
}

// readContextLines reads up to contextSize lines centered on targetLine.
func readContextLines(filename string, targetLine, contextSize int) []string {
	file, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	startLine := targetLine - contextSize/2
	endLine := targetLine + contextSize/2

	for scanner.Scan() {
		lineNum++
		if lineNum >= startLine && lineNum <= endLine {
			lines = append(lines, scanner.Text())
		}
		if lineNum > endLine {
			break
		}
	}
	return lines
}

// New creates a diagnostic from a registered code.
func New(code string) *KinesisError {
	template, ok := registry[code]
	if !ok {
		return &KinesisError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &KinesisError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
	}
}

// Newf creates an uncoded diagnostic with a formatted message.
func Newf(category Category, format string, args ...any) *KinesisError {
	return &KinesisError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}
