package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/operacoes-b2b/chamado-service/internal/config"
)

func TestColumnToLetter(t *testing.T) {
	cases := []struct {
		column int
		want   string
	}{
		{0, "A"},
		{1, "B"},
		{25, "Z"},
		{26, "AA"},
		{27, "AB"},
		{51, "AZ"},
		{52, "BA"},
		{701, "ZZ"},
		{702, "AAA"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, ColumnToLetter(tc.column), "column %d", tc.column)
	}
}

func testClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(config.SheetsConfig{
		SpreadsheetID: "sheet-123",
		SheetName:     "HOJE",
		AccessToken:   "test-token",
		BaseURL:       server.URL,
	}, zap.NewNop())
	return client, server
}

func TestReadRows(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		require.Contains(t, r.URL.Path, "/spreadsheets/sheet-123/values/")

		_ = json.NewEncoder(w).Encode(map[string]any{
			"values": [][]string{{"linha", "cliente"}, {"2", "Empresa Alfa"}},
		})
	})

	values, err := client.ReadRows(context.Background(), "A1:B2")
	require.NoError(t, err)
	require.Len(t, values, 2)
	require.Equal(t, "Empresa Alfa", values[1][1])
}

func TestUpdateCellTargetsA1Cell(t *testing.T) {
	var gotPath string
	var gotBody valueRange
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{}"))
	})

	// Row 3, column 7 is cell H3.
	require.NoError(t, client.UpdateCell(context.Background(), 3, 7, "FINALIZADO"))
	require.Contains(t, gotPath, "HOJE!H3")
	require.Equal(t, [][]string{{"FINALIZADO"}}, gotBody.Values)
}

func TestAppendRow(t *testing.T) {
	var gotBody valueRange
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Contains(t, r.URL.RawQuery, "valueInputOption=RAW")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{}"))
	})

	require.NoError(t, client.AppendRow(context.Background(), []string{"2", "Empresa Alfa", "ABERTO"}))
	require.Equal(t, [][]string{{"2", "Empresa Alfa", "ABERTO"}}, gotBody.Values)
}

func TestInfo(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"properties": map[string]any{"title": "Operações B2B"},
		})
	})

	info, err := client.Info(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sheet-123", info.SpreadsheetID)
	require.Equal(t, "HOJE", info.SheetName)
	require.Equal(t, "Operações B2B", info.Title)
}

func TestNonSuccessStatusIsAnError(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"permission denied"}`))
	})

	_, err := client.ReadRows(context.Background(), "A1:B2")
	require.Error(t, err)
	require.Contains(t, err.Error(), "403")
}
