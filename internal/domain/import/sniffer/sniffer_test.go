package sniffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/fiat-funding-tracker/internal/domain/import/mapping"
	"github.com/FACorreiaa/fiat-funding-tracker/internal/domain/import/parser"
)

func TestDetectConfig(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		delimiter rune
		headers   []string
		samples   int
	}{
		{
			name:      "comma",
			input:     "Date,Amt,Type\n2024-01-05,100,IN\nbad,50,OUT\n",
			delimiter: ',',
			headers:   []string{"Date", "Amt", "Type"},
			samples:   2,
		},
		{
			name:      "semicolon with crlf and bom",
			input:     "\ufeffData;Valor;Tipo\r\n05/01/2024;12,5;Entrada\r\n",
			delimiter: ';',
			headers:   []string{"Data", "Valor", "Tipo"},
			samples:   1,
		},
		{
			name:      "tab",
			input:     "date\tamount\tkind\n2024-01-05\t1\tdeposit\n",
			delimiter: '\t',
			headers:   []string{"date", "amount", "kind"},
			samples:   1,
		},
		{
			name:      "single column defaults to comma",
			input:     "Date\n2024-01-05\n",
			delimiter: ',',
			headers:   []string{"Date"},
			samples:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := DetectConfig([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.delimiter, cfg.Delimiter)
			assert.Equal(t, tt.headers, cfg.Headers)
			assert.Len(t, cfg.SampleRows, tt.samples)
			assert.Len(t, cfg.Fingerprint, 64)
			assert.Equal(t, tt.delimiter, cfg.ReadOptions().Delimiter)
		})
	}
}

func TestDetectConfigWithOptions(t *testing.T) {
	input := "Exported by Bank\nDate|Amount|Kind\n2024-01-05|1|IN\n"

	cfg, err := DetectConfigWithOptions([]byte(input), DetectOptions{HeaderRowIndex: 1})
	require.NoError(t, err)
	assert.Equal(t, '|', cfg.Delimiter)
	assert.Equal(t, 1, cfg.SkipLines)
	assert.Equal(t, []string{"Date", "Amount", "Kind"}, cfg.Headers)
	assert.Equal(t, [][]string{{"2024-01-05", "1", "IN"}}, cfg.SampleRows)

	cfg, err = DetectConfigWithOptions([]byte("a;b,c\n"), DetectOptions{Delimiter: ','})
	require.NoError(t, err)
	assert.Equal(t, []string{"a;b", "c"}, cfg.Headers)

	_, err = DetectConfigWithOptions([]byte(input), DetectOptions{HeaderRowIndex: 10})
	assert.ErrorIs(t, err, ErrNoHeadersFound)

	_, err = DetectConfig([]byte(" \n"))
	assert.ErrorIs(t, err, parser.ErrEmptyFile)
}

func TestFingerprint_IgnoresCaseAndPunctuation(t *testing.T) {
	a, err := DetectConfig([]byte("Date,Amount,Kind\n1,2,3\n"))
	require.NoError(t, err)
	b, err := DetectConfig([]byte("date;AMOUNT;kind.\n1;2;3\n"))
	require.NoError(t, err)
	c, err := DetectConfig([]byte("Date,Kind,Amount\n1,2,3\n"))
	require.NoError(t, err)

	assert.Equal(t, a.Fingerprint, b.Fingerprint)
	assert.NotEqual(t, a.Fingerprint, c.Fingerprint)
}

func TestSuggestMapping(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    mapping.ColumnMapping
	}{
		{
			name:    "short english headers",
			headers: []string{"Date", "Amt", "Type"},
			want:    mapping.ColumnMapping{Date: "Date", Amount: "Amt", Kind: "Type"},
		},
		{
			name:    "exchange export",
			headers: []string{"Timestamp", "Transaction Type", "Fiat Amount", "Currency", "Notes"},
			want:    mapping.ColumnMapping{Date: "Timestamp", Amount: "Fiat Amount", Kind: "Transaction Type", Currency: "Currency"},
		},
		{
			name:    "portuguese",
			headers: []string{"Data Mov.", "Valor", "Moeda", "Tipo"},
			want:    mapping.ColumnMapping{Date: "Data Mov.", Amount: "Valor", Kind: "Tipo", Currency: "Moeda"},
		},
		{
			name:    "nothing recognizable",
			headers: []string{"A", "B"},
			want:    mapping.ColumnMapping{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SuggestMapping(tt.headers))
		})
	}
}

func TestProbeDateEncoding(t *testing.T) {
	tests := []struct {
		name    string
		samples []string
		want    parser.DateSettings
	}{
		{"excel serials", []string{"45296", "45297.5"}, parser.DateSettings{Type: parser.DateExcel}},
		{"unix seconds", []string{"1704412800", "1704499200"}, parser.DateSettings{Type: parser.DateTimestampSecond}},
		{"unix millis", []string{"1704412800000"}, parser.DateSettings{Type: parser.DateTimestampMilli}},
		{"iso strings", []string{"2024-01-05", "2024-01-06"}, parser.DefaultDateSettings()},
		{"day first", []string{"05/01/2024", "25/01/2024"}, parser.DateSettings{Type: parser.DateString, Format: "dd/MM/yyyy"}},
		{"day first dotted", []string{"25.01.2024"}, parser.DateSettings{Type: parser.DateString, Format: "dd.MM.yyyy"}},
		{"ambiguous order", []string{"05/01/2024", "06/01/2024"}, parser.DefaultDateSettings()},
		{"mixed", []string{"45296", "2024-01-05"}, parser.DefaultDateSettings()},
		{"blank", []string{"", "  "}, parser.DefaultDateSettings()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProbeDateEncoding(tt.samples))
		})
	}
}
