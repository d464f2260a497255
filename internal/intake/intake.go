// Package intake turns inbound vendor emails into proposals.
package intake

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"procurement/db"
	"procurement/internal/apperr"
	"procurement/internal/attachments"
	"procurement/internal/proposals"
	"procurement/models"

	"go.uber.org/zap"
)

// Email is the webhook payload.
type Email struct {
	From        string       `json:"from"`
	Subject     string       `json:"subject"`
	Text        string       `json:"text"`
	HTML        string       `json:"html"`
	Attachments []Attachment `json:"attachments"`
}

// Attachment metadata as delivered by the mail provider. Content, when
// present, is the base64 encoded body.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	URL         string `json:"url"`
	Content     string `json:"content,omitempty"`
}

type Proposals interface {
	UpsertFromEmail(ctx context.Context, e proposals.EmailSubmission) (*models.ProposalView, bool, error)
}

type Vendors interface {
	GetVendorByEmail(ctx context.Context, email string) (*models.Vendor, error)
}

type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

type Adapter struct {
	proposals Proposals
	vendors   Vendors
	objects   ObjectStore
	logger    *zap.Logger
}

// NewAdapter builds an Adapter. objects may be nil, in which case inline
// attachment bodies are dropped and only their metadata is kept.
func NewAdapter(p Proposals, v Vendors, objects ObjectStore, logger *zap.Logger) *Adapter {
	return &Adapter{proposals: p, vendors: v, objects: objects, logger: logger}
}

// Receive records the email as a proposal. The bool reports whether the
// proposal was newly created.
func (a *Adapter) Receive(ctx context.Context, e Email) (*models.ProposalView, bool, error) {
	from := strings.ToLower(strings.TrimSpace(e.From))
	if from == "" {
		return nil, false, apperr.Validation("Missing sender email (from field)")
	}
	a.logger.Info("email received",
		zap.String("from", from),
		zap.String("subject", e.Subject),
		zap.Bool("has_text", e.Text != ""),
		zap.Bool("has_html", e.HTML != ""),
		zap.Int("attachments", len(e.Attachments)),
	)

	files, keys, err := a.store(ctx, from, e.Attachments)
	if err != nil {
		return nil, false, err
	}

	view, created, err := a.proposals.UpsertFromEmail(ctx, proposals.EmailSubmission{
		From:        from,
		Subject:     e.Subject,
		Text:        e.Text,
		HTML:        e.HTML,
		Attachments: proposals.NormalizeAttachments(files),
	})
	if err != nil {
		a.discard(keys)
		return nil, false, err
	}
	return view, created, nil
}

// store uploads inline attachment bodies and returns the attachment list
// with their URLs filled in, plus the keys written.
func (a *Adapter) store(ctx context.Context, from string, in []Attachment) ([]models.Attachment, []string, error) {
	out := make([]models.Attachment, 0, len(in))
	for _, att := range in {
		out = append(out, models.Attachment{
			Filename:    att.Filename,
			ContentType: att.ContentType,
			Size:        att.Size,
			URL:         att.URL,
		})
	}
	if a.objects == nil || !hasContent(in) {
		return out, nil, nil
	}

	v, err := a.vendors.GetVendorByEmail(ctx, from)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			// The upsert reports the unknown sender.
			return out, nil, nil
		}
		return nil, nil, apperr.Unexpected("Failed to process email", err)
	}
	if !v.IsActive {
		return out, nil, nil
	}

	var keys []string
	for i, att := range in {
		if att.Content == "" {
			continue
		}
		body, err := base64.StdEncoding.DecodeString(att.Content)
		if err != nil {
			a.discard(keys)
			return nil, nil, apperr.Validation("Attachment %d content is not valid base64", i+1)
		}
		normalized := proposals.NormalizeAttachments([]models.Attachment{out[i]})[0]
		key := attachments.Key("proposals/"+v.ID, normalized.Filename)
		url, err := a.objects.Put(ctx, key, body, normalized.ContentType)
		if err != nil {
			a.discard(keys)
			return nil, nil, apperr.Unexpected("Failed to store attachment", err)
		}
		keys = append(keys, key)
		out[i].URL = url
		out[i].Size = int64(len(body))
	}
	return out, keys, nil
}

// discard removes uploaded objects after a failed upsert, on a fresh
// context so a cancelled request still cleans up.
func (a *Adapter) discard(keys []string) {
	for _, key := range keys {
		if err := a.objects.Delete(context.Background(), key); err != nil {
			a.logger.Warn("failed to remove orphaned attachment", zap.String("key", key), zap.Error(err))
		}
	}
}

func hasContent(in []Attachment) bool {
	for _, att := range in {
		if att.Content != "" {
			return true
		}
	}
	return false
}
