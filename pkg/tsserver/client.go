// Package tsserver drives a TypeScript tsserver process over its stdio
// protocol and exposes it as an engine.Engine.
//
// Requests are written as one JSON object per line. Responses and events come
// back as Content-Length framed JSON bodies and are matched to requests by
// sequence number.
package tsserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/tmplts/pkg/position"
	"gitlab.com/tozd/go/errors"
)

var (
	ErrRequestFailed = errors.Base("tsserver request failed")
	ErrClosed        = errors.Base("tsserver connection closed")
)

type Options struct {
	// Fs reads files the engine reports on but that were never opened, such
	// as companion sources named in definitions.
	Fs afero.Fs
	// CompilerOptions apply to files outside any tsconfig project. Nil uses
	// DefaultCompilerOptions.
	CompilerOptions *CompilerOptions
}

type Client struct {
	w   io.Writer
	wmu sync.Mutex

	mu      sync.Mutex
	seq     int
	pending map[int]chan message
	docs    map[string]*position.Document

	fs      afero.Fs
	done    chan struct{}
	readErr error
	cleanup func() error
}

// NewClient talks to a tsserver reading its output from r and writing
// requests to w. It does not configure the server; see Configure.
func NewClient(ctx context.Context, r io.Reader, w io.Writer, opts Options) *Client {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	c := &Client{
		w:       w,
		pending: make(map[int]chan message),
		docs:    make(map[string]*position.Document),
		fs:      opts.Fs,
		done:    make(chan struct{}),
	}
	go c.readLoop(ctx, bufio.NewReader(r))
	return c
}

// Start launches tsserver at path and configures it for virtual files.
func Start(ctx context.Context, path string, args []string, opts Options) (*Client, error) {
	cmd := exec.CommandContext(ctx, path, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Errorf("tsserver stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Errorf("tsserver stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Errorf("starting %s: %w", path, err)
	}

	zerolog.Ctx(ctx).Info().Str("path", path).Strs("args", args).Int("pid", cmd.Process.Pid).Msg("started tsserver")

	c := NewClient(ctx, stdout, stdin, opts)
	c.cleanup = func() error {
		_ = stdin.Close()
		return cmd.Wait()
	}

	if err := c.Configure(ctx, opts.CompilerOptions); err != nil {
		_ = c.Close(ctx)
		return nil, err
	}
	return c, nil
}

// Configure sets the compiler options for inferred projects.
func (c *Client) Configure(ctx context.Context, opts *CompilerOptions) error {
	o := DefaultCompilerOptions()
	if opts != nil {
		o = *opts
	}
	return c.Call(ctx, CommandCompilerOptionsForInferred, SetCompilerOptionsArgs{Options: o}, nil)
}

// Close asks tsserver to exit and waits for the process when Start created it.
func (c *Client) Close(ctx context.Context) error {
	if err := c.send(ctx, CommandExit, nil); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("sending exit to tsserver")
	}
	if c.cleanup == nil {
		return nil
	}
	if err := c.cleanup(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil
		}
		return errors.Errorf("waiting for tsserver: %w", err)
	}
	return nil
}

// Call sends command and decodes the response body into out, which may be nil.
func (c *Client) Call(ctx context.Context, command string, args any, out any) error {
	ch := make(chan message, 1)

	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.pending[seq] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, seq)
		c.mu.Unlock()
	}()

	if err := c.write(ctx, request{Seq: seq, Type: "request", Command: command, Arguments: args}); err != nil {
		return err
	}

	var resp message
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return errors.Errorf("%w: %v", ErrClosed, c.readErr)
	case resp = <-ch:
	}

	zerolog.Ctx(ctx).Trace().
		Int("seq", seq).
		Str("command", command).
		Bool("success", resp.Success).
		Int("body_bytes", len(resp.Body)).
		Msg("tsserver response")

	if !resp.Success {
		return errors.Errorf("%w: %s: %s", ErrRequestFailed, command, resp.Message)
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return errors.Errorf("decoding %s response: %w", command, err)
	}
	return nil
}

// send writes a request whose response, if any, is ignored.
func (c *Client) send(ctx context.Context, command string, args any) error {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.mu.Unlock()
	return c.write(ctx, request{Seq: seq, Type: "request", Command: command, Arguments: args})
}

func (c *Client) write(ctx context.Context, req request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return errors.Errorf("encoding %s request: %w", req.Command, err)
	}

	zerolog.Ctx(ctx).Trace().Int("seq", req.Seq).Str("command", req.Command).Msg("tsserver request")

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if _, err := c.w.Write(append(data, '\n')); err != nil {
		return errors.Errorf("%w: writing %s: %v", ErrClosed, req.Command, err)
	}
	return nil
}

func (c *Client) readLoop(ctx context.Context, r *bufio.Reader) {
	logger := zerolog.Ctx(ctx)
	for {
		body, err := readFramedMessage(r)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Warn().Err(err).Msg("reading from tsserver")
			}
			c.readErr = err
			close(c.done)
			return
		}

		var msg message
		if err := json.Unmarshal(body, &msg); err != nil {
			logger.Warn().Err(err).Msg("decoding tsserver message")
			continue
		}

		switch msg.Type {
		case "response":
			c.mu.Lock()
			ch, ok := c.pending[msg.RequestSeq]
			c.mu.Unlock()
			if !ok {
				logger.Debug().Int("request_seq", msg.RequestSeq).Str("command", msg.Command).Msg("unmatched tsserver response")
				continue
			}
			ch <- msg
		case "event":
			logger.Trace().Str("event", msg.Event).Msg("tsserver event")
		}
	}
}

func readFramedMessage(r *bufio.Reader) ([]byte, error) {
	contentLen := -1
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		if line == "\r\n" || line == "\n" {
			if contentLen < 0 {
				// stray blank line between frames
				continue
			}
			break
		}
		line = strings.TrimRight(line, "\r\n")
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, errors.Errorf("invalid header line %q", line)
		}
		if strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			var n int
			if _, err := fmt.Sscanf(strings.TrimSpace(value), "%d", &n); err != nil || n < 0 {
				return nil, errors.Errorf("invalid Content-Length %q", value)
			}
			contentLen = n
		}
	}
	body := make([]byte, contentLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}

// document returns the text the engine holds for fileName: the last content
// sent with UpdateFile, or the file on disk.
func (c *Client) document(fileName string) (*position.Document, error) {
	c.mu.Lock()
	doc, ok := c.docs[fileName]
	c.mu.Unlock()
	if ok {
		return doc, nil
	}
	data, err := afero.ReadFile(c.fs, fileName)
	if err != nil {
		return nil, errors.Errorf("reading %s: %w", fileName, err)
	}
	return position.NewDocument(position.PathToURI(fileName), 0, string(data)), nil
}

func toLocation(doc *position.Document, offset int) Location {
	p := doc.PositionAt(offset)
	return Location{Line: p.Line + 1, Offset: p.Character + 1}
}

func toOffset(doc *position.Document, loc Location) int {
	return doc.OffsetAt(position.Place{Line: loc.Line - 1, Character: loc.Offset - 1})
}
