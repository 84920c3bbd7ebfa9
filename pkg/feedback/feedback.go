package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
	"gopkg.in/go-playground/validator.v9"
)

const (
	SheetRange       = "Sheet1!A:E"
	valueInputOption = "USER_ENTERED"
)

var (
	ErrMissingFields = errors.New("Missing required fields")
	ErrInvalidStatus = errors.New("Invalid status value")
	ErrNotConfigured = errors.New("Server configuration error")
)

var statuses = map[string]bool{"slow": true, "normal": true, "fast": true}

var validate = validator.New()

// Submission is one post-swap speed rating
type Submission struct {
	Timestamp     string `json:"timestamp" validate:"required"`
	WalletAddress string `json:"wallet_address" validate:"required"`
	TxType        string `json:"tx_type" validate:"required"`
	Status        string `json:"status" validate:"required"`
	TxHash        string `json:"txhash,omitempty"`
}

// Validate checks required fields and the status value
func (s Submission) Validate() error {
	if err := validate.Struct(s); err != nil {
		return ErrMissingFields
	}
	if !statuses[s.Status] {
		return ErrInvalidStatus
	}
	return nil
}

func (s Submission) row() []interface{} {
	return []interface{}{s.Timestamp, s.WalletAddress, s.TxType, s.Status, s.TxHash}
}

// Appender appends one row to a spreadsheet
type Appender interface {
	AppendRow(ctx context.Context, values []interface{}) error
}

// SheetsAppender writes rows with the Sheets v4 API
type SheetsAppender struct {
	values        *sheets.SpreadsheetsValuesService
	spreadsheetID string
}

// NewSheetsAppender authenticates as the service account. The private key
// may carry escaped newlines as found in env files. Extra options replace
// the credentials.
func NewSheetsAppender(ctx context.Context, spreadsheetID, email, privateKey string, opts ...option.ClientOption) (*SheetsAppender, error) {
	if spreadsheetID == "" {
		return nil, ErrNotConfigured
	}
	if len(opts) == 0 {
		if email == "" || privateKey == "" {
			return nil, ErrNotConfigured
		}
		creds, err := json.Marshal(map[string]string{
			"type":         "service_account",
			"client_email": email,
			"private_key":  strings.ReplaceAll(privateKey, `\n`, "\n"),
			"token_uri":    "https://oauth2.googleapis.com/token",
		})
		if err != nil {
			return nil, err
		}
		opts = []option.ClientOption{
			option.WithCredentialsJSON(creds),
			option.WithScopes(sheets.SpreadsheetsScope),
		}
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	return &SheetsAppender{values: svc.Spreadsheets.Values, spreadsheetID: spreadsheetID}, nil
}

// AppendRow appends values as a new row of the feedback range
func (a *SheetsAppender) AppendRow(ctx context.Context, values []interface{}) error {
	_, err := a.values.Append(a.spreadsheetID, SheetRange, &sheets.ValueRange{
		Values: [][]interface{}{values},
	}).ValueInputOption(valueInputOption).Context(ctx).Do()
	return err
}

// Service validates submissions and hands them to the appender
type Service struct {
	appender Appender
	logger   *zap.Logger
}

// NewService accepts a nil appender; Submit then reports ErrNotConfigured
func NewService(appender Appender, logger *zap.Logger) *Service {
	return &Service{appender: appender, logger: logger}
}

// Submit validates sub and appends it as one row
func (s *Service) Submit(ctx context.Context, sub Submission) error {
	if err := sub.Validate(); err != nil {
		return err
	}
	if s.appender == nil {
		s.logger.Error("google sheets configuration missing")
		return ErrNotConfigured
	}
	if err := s.appender.AppendRow(ctx, sub.row()); err != nil {
		s.logger.Error("failed to append feedback",
			zap.String("wallet", sub.WalletAddress),
			zap.Error(err))
		return err
	}
	s.logger.Info("feedback recorded",
		zap.String("wallet", sub.WalletAddress),
		zap.String("status", sub.Status))
	return nil
}

// ErrorMessage maps a Submit failure to the message shown to callers
func ErrorMessage(err error) string {
	var gerr *googleapi.Error
	switch {
	case errors.Is(err, ErrMissingFields), errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrNotConfigured):
		return err.Error()
	case errors.As(err, &gerr) && (gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden):
		return "Authentication failed"
	case errors.As(err, &gerr) && gerr.Code == http.StatusNotFound:
		return "Spreadsheet not found or inaccessible"
	}
	return "Failed to submit feedback"
}

// IsBadRequest reports whether err was caused by the submission itself
func IsBadRequest(err error) bool {
	return errors.Is(err, ErrMissingFields) || errors.Is(err, ErrInvalidStatus)
}
