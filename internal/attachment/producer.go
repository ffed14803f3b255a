// Package attachment turns selected files into data URI references.
package attachment

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/hashchat-engine/internal/core"
)

// DefaultMaxBytes is the stock payload limit.
const DefaultMaxBytes int64 = 5 * 1024 * 1024

// Result is the outcome of an asynchronous encode.
type Result struct {
	Ref  string
	MIME string
	Err  error
}

// Producer encodes images into data URIs, refusing anything over maxBytes.
type Producer struct {
	maxBytes int64
	log      *zerolog.Logger
}

// NewProducer returns a producer with the given limit. A non-positive limit
// uses DefaultMaxBytes.
func NewProducer(maxBytes int64, logger *zerolog.Logger) *Producer {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Producer{maxBytes: maxBytes, log: logger}
}

// MaxBytes returns the payload limit.
func (p *Producer) MaxBytes() int64 {
	return p.maxBytes
}

// Encode reads r fully and returns its data URI and MIME type.
func (p *Producer) Encode(r io.Reader) (string, string, error) {
	data, err := io.ReadAll(io.LimitReader(r, p.maxBytes+1))
	if err != nil {
		return "", "", fmt.Errorf("read attachment: %w", err)
	}
	if int64(len(data)) > p.maxBytes {
		return "", "", core.Fail(core.KindValidation, fmt.Sprintf("file size must be less than %s", humanize.IBytes(uint64(p.maxBytes))))
	}
	if len(data) == 0 {
		return "", "", core.Fail(core.KindValidation, "file is empty")
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", "", core.Fail(core.KindValidation, fmt.Sprintf("only images can be attached, got %s", mtype.String()))
	}
	base, _, _ := strings.Cut(mtype.String(), ";")

	p.log.Debug().Str("mime", base).Str("size", humanize.IBytes(uint64(len(data)))).Msg("attachment encoded")
	return "data:" + base + ";base64," + base64.StdEncoding.EncodeToString(data), base, nil
}

// Produce encodes r on its own goroutine and delivers exactly one Result.
// Only the receiver waits; a cancelled ctx yields ctx.Err().
func (p *Producer) Produce(ctx context.Context, r io.Reader) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		type encoded struct {
			ref, mime string
			err       error
		}
		done := make(chan encoded, 1)
		go func() {
			ref, mime, err := p.Encode(r)
			done <- encoded{ref, mime, err}
		}()
		select {
		case <-ctx.Done():
			out <- Result{Err: ctx.Err()}
		case e := <-done:
			out <- Result{Ref: e.ref, MIME: e.mime, Err: e.err}
		}
	}()
	return out
}
