package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ownmine/ownmine/internal/result"
)

const (

	// Well-known path of the control socket.
	DefaultSocketPath = "/tmp/ownmine.sock"

	// Largest request accepted, including the terminating newline.
	MaxRequestSize = 64 << 10

	// Largest response a client reads.
	MaxResponseSize = 1 << 20

	okPrefix    = "[OK]"
	errorPrefix = "[ERROR"
)

// Encodes a result as response text, without a trailing newline.
func Encode(r result.Result) string {
	var prefix string
	switch {
	case r.OK:
		prefix = okPrefix
	case r.Code == 0 || r.Code == result.CodeFailure:
		prefix = errorPrefix + "]"
	default:
		prefix = errorPrefix + ":" + strconv.Itoa(r.Code) + "]"
	}
	if r.Message == "" {
		return prefix
	}
	return prefix + " " + r.Message
}

// Decodes response text into a result.
func Decode(s string) result.Result {
	s = strings.TrimSuffix(s, "\n")

	if rest, ok := strings.CutPrefix(s, okPrefix); ok {
		return result.Success(trimSep(rest))
	}

	if rest, ok := strings.CutPrefix(s, errorPrefix); ok {
		if body, ok := strings.CutPrefix(rest, "]"); ok {
			return result.Failure(trimSep(body))
		}
		if tail, ok := strings.CutPrefix(rest, ":"); ok {
			if end := strings.IndexByte(tail, ']'); end > 0 {
				if code, err := strconv.Atoi(tail[:end]); err == nil {
					return result.FailureCode(code, trimSep(tail[end+1:]))
				}
			}
		}
	}

	return result.Success(s)
}

// Drops the single space separating the prefix from the message.
func trimSep(s string) string {
	return strings.TrimPrefix(s, " ")
}

// Reads one request line. The line ends at a newline or at end of input;
// surrounding whitespace is trimmed.
func ReadRequest(r io.Reader) (string, error) {
	br := bufio.NewReader(io.LimitReader(r, MaxRequestSize+1))

	line, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("%w: %w", ErrProtocol, err)
	}
	if len(line) > MaxRequestSize {
		return "", fmt.Errorf("%w: request exceeds %d bytes", ErrTooLarge, MaxRequestSize)
	}
	if err != nil && line == "" {
		return "", fmt.Errorf("%w: empty request", ErrProtocol)
	}
	return strings.TrimSpace(line), nil
}

// Writes one request line.
func WriteRequest(w io.Writer, line string) error {
	if strings.ContainsAny(line, "\r\n") {
		return fmt.Errorf("%w: request must be a single line", ErrProtocol)
	}
	if len(line)+1 > MaxRequestSize {
		return fmt.Errorf("%w: request exceeds %d bytes", ErrTooLarge, MaxRequestSize)
	}
	if _, err := io.WriteString(w, line+"\n"); err != nil {
		return fmt.Errorf("%w: %w", ErrProtocol, err)
	}
	return nil
}

// Writes an encoded result followed by a newline.
func WriteResponse(w io.Writer, r result.Result) error {
	if _, err := io.WriteString(w, Encode(r)+"\n"); err != nil {
		return fmt.Errorf("%w: %w", ErrProtocol, err)
	}
	return nil
}

// Reads a response until end of input and decodes it.
func ReadResponse(r io.Reader) (result.Result, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxResponseSize+1))
	if err != nil {
		return result.Result{}, fmt.Errorf("%w: %w", ErrProtocol, err)
	}
	if len(data) > MaxResponseSize {
		return result.Result{}, fmt.Errorf("%w: response exceeds %d bytes", ErrTooLarge, MaxResponseSize)
	}
	return Decode(string(data)), nil
}
