package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kgc/internal/ir"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONFailureKernelCode(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	kerr := ir.NewUnknownPatternError("A", "task|AND|AND|none|")
	err := formatter.Failure(nil, fmt.Errorf("fire: %w", kerr))
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(ir.ErrCodeUnknownPattern), resp.Error.Code)
}

func TestOutputFormatter_JSONFailureGenericCode(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Failure(map[string]int{"n": 1}, errors.New("boom")))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_CLI", resp.Error.Code)
	assert.Equal(t, "boom", resp.Error.Message)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Success("All patterns valid")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "All patterns valid")
}

func TestOutputFormatter_TextFailure(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Failure(nil, errors.New("chain broken")))
	assert.Equal(t, "Error [E_CLI]: chain broken\n", buf.String())
}

func TestReceiptViewText(t *testing.T) {
	delta, err := ir.NewDelta(
		[]ir.Triple{ir.T("A", "kgc:completed", "true")},
		[]ir.Triple{ir.T("A", "kgc:hasToken", "true")},
	)
	require.NoError(t, err)
	r := ir.Receipt{
		Seq:        7,
		TxID:       "tx-7",
		NodeID:     "A",
		Verb:       ir.VerbTransmute,
		Params:     ir.VerbConfig{Verb: ir.VerbTransmute},
		Committed:  true,
		MerkleRoot: "0123456789abcdef",
		Delta:      delta,
		Timestamp:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	v := newReceiptView(r)
	assert.Equal(t, "2026-01-01T00:00:00.000Z", v.Timestamp)

	buf := &bytes.Buffer{}
	v.renderText(buf, false)
	assert.Contains(t, buf.String(), "[7] tx-7 A ")
	assert.Contains(t, buf.String(), "committed root=0123456789ab")
	assert.NotContains(t, buf.String(), "+ ")

	buf.Reset()
	v.renderText(buf, true)
	assert.Contains(t, buf.String(), `+ <A> <kgc:completed> "true"`)
	assert.Contains(t, buf.String(), `- <A> <kgc:hasToken> "true"`)
}

func TestReceiptListCounts(t *testing.T) {
	l := newReceiptList([]ir.Receipt{
		{Seq: 1, Committed: true},
		{Seq: 2, Committed: false, Reason: "UNKNOWN_PATTERN: A"},
		{Seq: 3, Committed: true},
	})
	assert.Equal(t, 2, l.Committed)
	assert.Equal(t, 1, l.Rejected)
	assert.Len(t, l.Receipts, 3)

	buf := &bytes.Buffer{}
	newReceiptList(nil).renderText(buf, false)
	assert.Equal(t, "No receipts.\n", buf.String())
}

func TestShort(t *testing.T) {
	assert.Equal(t, "-", short(""))
	assert.Equal(t, "abc", short("abc"))
	assert.Equal(t, "0123456789ab", short("0123456789abcdef"))
}

func TestExitError(t *testing.T) {
	err := NewExitError(ExitFailure, "test error")
	assert.Equal(t, "test error", err.Error())
	assert.Equal(t, ExitFailure, err.Code)
	assert.Nil(t, err.Unwrap())
}

func TestExitErrorWrapped(t *testing.T) {
	underlying := errors.New("underlying error")
	err := WrapExitError(ExitCommandError, "wrapper", underlying)
	assert.Equal(t, "wrapper: underlying error", err.Error())
	assert.ErrorIs(t, err, underlying)
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil", nil, ExitSuccess},
		{"failure", NewExitError(ExitFailure, "x"), ExitFailure},
		{"command error", NewExitError(ExitCommandError, "x"), ExitCommandError},
		{"wrapped exit error", fmt.Errorf("outer: %w", NewExitError(ExitCommandError, "x")), ExitCommandError},
		{"plain error", errors.New("x"), ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetExitCode(tt.err))
		})
	}
}
