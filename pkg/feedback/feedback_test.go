package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

type recorder struct {
	rows [][]interface{}
	err  error
}

func (r *recorder) AppendRow(_ context.Context, values []interface{}) error {
	r.rows = append(r.rows, values)
	return r.err
}

func validSubmission() Submission {
	return Submission{
		Timestamp:     "2025-12-26T10:00:00Z",
		WalletAddress: "0xabc",
		TxType:        "swap",
		Status:        "fast",
		TxHash:        "0xdead",
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validSubmission().Validate())

	missing := validSubmission()
	missing.TxType = ""
	assert.ErrorIs(t, missing.Validate(), ErrMissingFields)

	bad := validSubmission()
	bad.Status = "yes"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidStatus)
}

func TestSubmitAppendsRow(t *testing.T) {
	rec := &recorder{}
	svc := NewService(rec, zap.NewNop())

	sub := validSubmission()
	sub.TxHash = ""
	require.NoError(t, svc.Submit(context.Background(), sub))
	require.Len(t, rec.rows, 1)
	assert.Equal(t, []interface{}{"2025-12-26T10:00:00Z", "0xabc", "swap", "fast", ""}, rec.rows[0])
}

func TestSubmitWithoutAppender(t *testing.T) {
	err := NewService(nil, zap.NewNop()).Submit(context.Background(), validSubmission())
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.False(t, IsBadRequest(err))

	err = NewService(nil, zap.NewNop()).Submit(context.Background(), Submission{})
	assert.True(t, IsBadRequest(err))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "Invalid status value", ErrorMessage(ErrInvalidStatus))
	assert.Equal(t, "Authentication failed", ErrorMessage(&googleapi.Error{Code: 403}))
	assert.Equal(t, "Spreadsheet not found or inaccessible", ErrorMessage(&googleapi.Error{Code: 404}))
	assert.Equal(t, "Failed to submit feedback", ErrorMessage(errors.New("boom")))
}

func TestNewSheetsAppenderRequiresConfig(t *testing.T) {
	_, err := NewSheetsAppender(context.Background(), "", "a@b", "key")
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewSheetsAppender(context.Background(), "sheet", "", "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSheetsAppenderPostsValues(t *testing.T) {
	var gotPath, gotOption string
	var body struct {
		Values [][]interface{} `json:"values"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotOption = r.URL.Query().Get("valueInputOption")
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1"}`))
	}))
	defer srv.Close()

	a, err := NewSheetsAppender(context.Background(), "sheet-1", "", "",
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	require.NoError(t, a.AppendRow(context.Background(), validSubmission().row()))
	assert.True(t, strings.HasPrefix(gotPath, "/v4/spreadsheets/sheet-1/values/"), gotPath)
	assert.True(t, strings.HasSuffix(gotPath, ":append"), gotPath)
	assert.Equal(t, "USER_ENTERED", gotOption)
	require.Len(t, body.Values, 1)
	assert.Equal(t, "fast", body.Values[0][3])
}

func TestSheetsAppenderSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Requested entity was not found."}}`))
	}))
	defer srv.Close()

	a, err := NewSheetsAppender(context.Background(), "missing", "", "",
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	err = a.AppendRow(context.Background(), validSubmission().row())
	require.Error(t, err)
	assert.Equal(t, "Spreadsheet not found or inaccessible", ErrorMessage(err))
}
