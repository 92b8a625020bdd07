package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/wmcube/settlesplit/internal/models"
)

// Scopes required to create drafts in the operator's mailbox.
var Scopes = []string{
	gmail.GmailComposeScope,
	gmail.GmailModifyScope,
}

// TokenConfig is the stored OAuth token material for the drafting mailbox.
type TokenConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	TokenURI     string `yaml:"token_uri"`
	AccessToken  string `yaml:"token"`
	RefreshToken string `yaml:"refresh_token"`
}

// RetryPolicy bounds draft-creation retries. The extraction pipeline never
// retries anything; transient Gmail failures are this collaborator's concern.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
}

// DefaultRetryPolicy matches the upload retry the rest of the system uses.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 4, InitialBackoff: 1 * time.Second}

// DraftService creates settlement drafts, one per output file.
type DraftService struct {
	svc    *gmail.Service
	cc     string
	retry  RetryPolicy
	logger *slog.Logger
}

// NewDraftService builds a Gmail client from stored token material.
func NewDraftService(ctx context.Context, tok TokenConfig, cc string, retry RetryPolicy, logger *slog.Logger) (*DraftService, error) {
	if tok.ClientID == "" || tok.RefreshToken == "" {
		return nil, fmt.Errorf("gmail token configuration is incomplete")
	}
	if retry.MaxAttempts < 1 {
		retry = DefaultRetryPolicy
	}
	if logger == nil {
		logger = slog.Default()
	}

	conf := &oauth2.Config{
		ClientID:     tok.ClientID,
		ClientSecret: tok.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: tok.TokenURI},
		Scopes:       Scopes,
	}
	client := conf.Client(ctx, &oauth2.Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	})

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	return &DraftService{svc: svc, cc: cc, retry: retry, logger: logger}, nil
}

// CreateDraft drafts one settlement email with the file attached and returns
// the draft ID. Transient failures are retried with exponential backoff per
// the injected policy.
func (s *DraftService) CreateDraft(ctx context.Context, file models.OutputFile) (string, error) {
	body, htmlBody := SettlementTemplate(file.Currency, file.PaymentTotal)
	raw, err := BuildRawMessage("", s.cc, Subject, body, htmlBody, []models.OutputFile{file})
	if err != nil {
		return "", fmt.Errorf("failed to assemble draft for %s: %w", file.Filename, err)
	}

	backoff := s.retry.InitialBackoff
	var lastErr error
	for attempt := 1; attempt <= s.retry.MaxAttempts; attempt++ {
		draft, err := s.svc.Users.Drafts.Create("me", &gmail.Draft{
			Message: &gmail.Message{Raw: raw},
		}).Context(ctx).Do()
		if err == nil {
			return draft.Id, nil
		}

		lastErr = err
		s.logger.Warn("Draft creation failed, will retry.",
			"filename", file.Filename,
			"attempt", attempt,
			"maxAttempts", s.retry.MaxAttempts,
			"backoff", backoff.String(),
			"error", err,
		)
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("draft for %s failed after all retries: %w", file.Filename, lastErr)
}

// CreateDrafts drafts one email per output file, a few in flight at a time.
// Draft creation is independent per file, so unlike page extraction it may
// fan out.
func (s *DraftService) CreateDrafts(ctx context.Context, files []models.OutputFile) error {
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(4)

	for _, file := range files {
		f := file
		eg.Go(func() error {
			id, err := s.CreateDraft(gctx, f)
			if err != nil {
				return err
			}
			s.logger.Info("Draft created.", "filename", f.Filename, "draftId", id)
			return nil
		})
	}
	return eg.Wait()
}
