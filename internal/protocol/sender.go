// Package protocol implements the per-contact send state machines against
// the abstract UI driver: text-only (navigate, composer, submit) and
// text+media (navigate, composer, attach, upload, send, caption follow-up).
package protocol

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/ponram06/WhatsappBulksender/internal/driver"
)

const chatBaseURL = "https://web.whatsapp.com/send"

// HomeURL is the chat UI landing page, used for the one-time login gate.
const HomeURL = "https://web.whatsapp.com"

const (
	preSubmitSettle  = 1200 * time.Millisecond
	postSubmitSettle = 1500 * time.Millisecond
	mediaSettle      = 1 * time.Second
	captionSettle    = 500 * time.Millisecond

	backstopTimeout = 2 * time.Second
	attachTimeout   = 5 * time.Second
	fallbackTimeout = 10 * time.Second

	fileInputPoll     = 500 * time.Millisecond
	fileInputAttempts = 20
)

// Result is the outcome of one send attempt. Note carries the failure
// reason when OK is false. Warning records a secondary, ignorable sub-step
// failure on an otherwise successful attempt (e.g. the caption follow-up),
// kept separate so callers can log it without failing the attempt.
type Result struct {
	OK      bool
	Note    string
	Warning string
}

type Options struct {
	ComposerTimeout time.Duration
	MediaTimeout    time.Duration
	Logger          zerolog.Logger

	// Settle overrides the inter-step settle sleep; tests use a no-op.
	Settle func(time.Duration)
}

type Sender struct {
	drv             driver.Driver
	composerTimeout time.Duration
	mediaTimeout    time.Duration
	settle          func(time.Duration)
	log             zerolog.Logger
}

func New(drv driver.Driver, opts Options) *Sender {
	s := &Sender{
		drv:             drv,
		composerTimeout: opts.ComposerTimeout,
		mediaTimeout:    opts.MediaTimeout,
		settle:          opts.Settle,
		log:             opts.Logger,
	}
	if s.composerTimeout <= 0 {
		s.composerTimeout = 30 * time.Second
	}
	if s.mediaTimeout <= 0 {
		s.mediaTimeout = 60 * time.Second
	}
	if s.settle == nil {
		s.settle = time.Sleep
	}
	return s
}

func chatURL(phone, message string) string {
	return chatBaseURL + "?phone=" + url.QueryEscape(phone) + "&text=" + url.QueryEscape(message)
}

// SendText delivers a text-only message: navigate to the per-contact URL
// with the message prefilled, wait for the composer, submit with the
// keyboard, then activate any visible explicit send control as a backstop.
// The keyboard shortcut alone is not always reliable, and the UI coalesces
// a second activation on an already-sent composer.
func (s *Sender) SendText(ctx context.Context, phone, message string) Result {
	if err := s.drv.Navigate(ctx, chatURL(phone, message)); err != nil {
		return Result{Note: "text_send_error: " + err.Error()}
	}
	box, err := s.drv.FindVisible(ctx, composerSelectors, s.composerTimeout)
	if err != nil {
		// Composer never appeared: not logged in or UI not ready.
		return Result{Note: "text_send_error: " + err.Error()}
	}
	s.settle(preSubmitSettle)
	if err := box.SendKeys(ctx, driver.KeyEnter); err != nil {
		return Result{Note: "text_send_error: " + err.Error()}
	}
	s.settle(postSubmitSettle)

	res := Result{OK: true}
	if btn, err := s.drv.FindVisible(ctx, sendControlSelectors, backstopTimeout); err == nil {
		if err := btn.Click(ctx); err != nil {
			res.Warning = "send_control_click: " + err.Error()
		}
	}
	return res
}

// SendMedia delivers a media file with the message text. The text is still
// prefilled in the URL so it is available as a caption or fallback; after a
// successful media send the composer is resubmitted best-effort to cover UI
// variants where the caption is not carried automatically.
func (s *Sender) SendMedia(ctx context.Context, phone, message, mediaPath string) Result {
	if err := s.drv.Navigate(ctx, chatURL(phone, message)); err != nil {
		return Result{Note: "media_send_error: " + err.Error()}
	}
	if _, err := s.drv.FindVisible(ctx, composerSelectors, s.mediaTimeout); err != nil {
		return Result{Note: "media_send_error: " + err.Error()}
	}
	s.settle(mediaSettle)

	res := s.attachAndSend(ctx, mediaPath)
	if !res.OK {
		return res
	}
	if warn := s.captionFollowup(ctx); warn != "" {
		s.log.Debug().Str("phone", phone).Str("warning", warn).Msg("caption follow-up skipped")
		res.Warning = warn
	}
	return res
}

func (s *Sender) attachAndSend(ctx context.Context, mediaPath string) Result {
	// Opening the attach menu is optional: on some variants the file input
	// is already reachable without it.
	for _, sel := range attachSelectors {
		el, err := s.drv.WaitClickable(ctx, []string{sel}, attachTimeout)
		if err != nil {
			continue
		}
		if err := el.Click(ctx); err == nil {
			break
		}
	}

	// File inputs can be inserted into the DOM asynchronously.
	inputs, _ := s.drv.FindAll(ctx, fileInputSelector)
	for i := 0; len(inputs) == 0 && i < fileInputAttempts; i++ {
		s.settle(fileInputPoll)
		inputs, _ = s.drv.FindAll(ctx, fileInputSelector)
	}
	if len(inputs) == 0 {
		return Result{Note: "media_send_error: no file input found"}
	}

	abs, err := filepath.Abs(mediaPath)
	if err != nil {
		return Result{Note: fmt.Sprintf("media_send_error: resolve media path: %v", err)}
	}
	// The most recently inserted input is the operative one.
	if err := inputs[len(inputs)-1].SendKeys(ctx, abs); err != nil {
		return Result{Note: "media_send_error: " + err.Error()}
	}

	if btn, err := s.drv.WaitClickable(ctx, sendControlSelectors, s.mediaTimeout); err == nil {
		if err := btn.Click(ctx); err == nil {
			return Result{OK: true}
		}
	}
	// No clickable send control: resubmit via the composer keyboard shortcut.
	if box, err := s.drv.FindVisible(ctx, composerSelectors, fallbackTimeout); err == nil {
		if err := box.SendKeys(ctx, driver.KeyEnter); err == nil {
			return Result{OK: true}
		}
	}
	return Result{Note: "media_send_failed"}
}

func (s *Sender) captionFollowup(ctx context.Context) string {
	box, err := s.drv.FindVisible(ctx, composerSelectors, fallbackTimeout)
	if err != nil {
		return "caption_followup: " + err.Error()
	}
	s.settle(captionSettle)
	if err := box.SendKeys(ctx, driver.KeyEnter); err != nil {
		return "caption_followup: " + err.Error()
	}
	return ""
}
