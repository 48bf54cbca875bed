package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/conserje/pkg/domain"
)

// TextHandler implements the standard text-based interface.
// Menus are printed as numbered lists; typing a number picks the entry.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer

	mu       sync.Mutex
	lastMenu []domain.MenuEntry

	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

// pump reads lines in the background so Input can honor context cancellation.
func (h *TextHandler) pump() {
	for {
		text, err := h.Reader.ReadString('\n')
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}
		if err != nil {
			if err == io.EOF {
				close(h.inputChan)
				return
			}
			h.inputChan <- inputResult{err: err}
			// Backoff for non-fatal errors to prevent CPU spikes on persistent failure
			time.Sleep(50 * time.Millisecond)
		}
	}
}

func (h *TextHandler) Output(ctx context.Context, resp *domain.TurnResponse) error {
	output := resp.Reply
	if h.Renderer != nil {
		if rendered, err := h.Renderer(output); err == nil {
			output = rendered
		}
	}
	fmt.Fprintln(h.Writer, strings.TrimSpace(output))

	for i, entry := range resp.Menu {
		fmt.Fprintf(h.Writer, "  %d. %s\n", i+1, entry.Label)
	}
	if len(resp.CTAs) > 0 {
		fmt.Fprintf(h.Writer, "  [%s]\n", strings.Join(resp.CTAs, " | "))
	}

	h.mu.Lock()
	h.lastMenu = append([]domain.MenuEntry(nil), resp.Menu...)
	h.mu.Unlock()
	return nil
}

func (h *TextHandler) Input(ctx context.Context) (Input, error) {
	h.initPump()

	for {
		select {
		case <-ctx.Done():
			return Input{}, ctx.Err()
		default:
			fmt.Fprint(h.Writer, "> ")
		}

		select {
		case <-ctx.Done():
			return Input{}, ctx.Err()
		case res, ok := <-h.inputChan:
			if !ok {
				return Input{}, io.EOF
			}
			if res.err != nil {
				return Input{}, res.err
			}
			text := strings.TrimSpace(res.text)
			if text == "" {
				continue
			}

			clean, err := SanitizeInput(text)
			if err != nil {
				fmt.Fprintf(h.Writer, "Error: %v. Intenta de nuevo.\n", err)
				continue
			}
			return h.pick(clean), nil
		}
	}
}

// pick turns a number into the matching entry of the last menu shown.
func (h *TextHandler) pick(text string) Input {
	n, err := strconv.Atoi(text)
	if err != nil {
		return Input{Message: text, Source: domain.SourceUser}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if n < 1 || n > len(h.lastMenu) {
		return Input{Message: text, Source: domain.SourceUser}
	}
	entry := h.lastMenu[n-1]
	return Input{Message: entry.Label, Source: domain.SourceMenu, ItemID: entry.ID}
}

func (h *TextHandler) SystemOutput(ctx context.Context, msg string) error {
	fmt.Fprintf(h.Writer, "\n[Sistema] %s\n", msg)
	return nil
}
