package cli

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/doeshing/shai-agent/internal/domain"
	"github.com/doeshing/shai-agent/internal/ports"
)

// Spinner displays an animated spinner during long operations. It can be
// started again after Stop.
type Spinner struct {
	frames   []string
	interval time.Duration
	writer   io.Writer
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

// NewSpinner creates a new spinner
func NewSpinner(w io.Writer) *Spinner {
	return &Spinner{
		frames:   []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		interval: 80 * time.Millisecond,
		writer:   w,
	}
}

// Start begins the spinner animation with an optional label.
func (s *Spinner) Start(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	stop := make(chan struct{})
	s.stopChan = stop

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		idx := 0
		for {
			fmt.Fprintf(s.writer, "\r%s %s", s.frames[idx%len(s.frames)], label)
			idx++
			select {
			case <-stop:
				fmt.Fprintf(s.writer, "\r\033[K")
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop stops the spinner animation and clears its line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()

	s.wg.Wait()
}

// spinningReasoner shows the spinner while the Reasoning Service is busy.
type spinningReasoner struct {
	next    ports.Reasoner
	spinner *Spinner
}

// WithSpinner decorates a Reasoner so every call animates the spinner.
func WithSpinner(next ports.Reasoner, spinner *Spinner) ports.Reasoner {
	return &spinningReasoner{next: next, spinner: spinner}
}

func (r *spinningReasoner) ClassifyIntent(ctx context.Context, req ports.IntentRequest) (domain.Intent, error) {
	r.spinner.Start("thinking")
	defer r.spinner.Stop()
	return r.next.ClassifyIntent(ctx, req)
}

func (r *spinningReasoner) Propose(ctx context.Context, req ports.ProposalRequest) ([]domain.Proposal, error) {
	r.spinner.Start("drafting changes")
	defer r.spinner.Stop()
	return r.next.Propose(ctx, req)
}

func (r *spinningReasoner) Revise(ctx context.Context, req ports.RevisionRequest) ([]domain.Proposal, error) {
	r.spinner.Start("revising")
	defer r.spinner.Stop()
	return r.next.Revise(ctx, req)
}

func (r *spinningReasoner) ValidateProposals(ctx context.Context, proposals []domain.Proposal) ([]domain.ValidationResult, error) {
	r.spinner.Start("reviewing")
	defer r.spinner.Stop()
	return r.next.ValidateProposals(ctx, proposals)
}

func (r *spinningReasoner) Answer(ctx context.Context, question string, project domain.ProjectContext) (string, error) {
	r.spinner.Start("thinking")
	defer r.spinner.Stop()
	return r.next.Answer(ctx, question, project)
}
