package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usBook = `
sheets:
  - name: Sheet1
    cells:
      A1: "10%"
      A2: "=A1*3"
      B1: "=MUNIT(2)"
`

const frenchBook = `
locale: fr_FR
sheets:
  - name: Feuille
    cells:
      A1: "1,5"
      A2: "=A1*2"
`

// run executes the root command in an empty working directory and returns
// what it printed on stdout
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeBook(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "book.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestCalc(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"function", []string{"calc", "=SUM(1,2)"}, "3\n"},
		{"french separators", []string{"--locale", "fr_FR", "calc", "=SUM(1,5;2)"}, "3,5\n"},
		{"array", []string{"calc", "=MUNIT(2)"}, "1\t0\n0\t1\n"},
		{"error value", []string{"calc", "=1/0"}, "#DIV/0!\n"},
		{"against a workbook", []string{"--locale", "fr_FR", "calc", "=A2+A1", writeBook(t, frenchBook)}, "4,5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestCalcErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"parse error", []string{"calc", "=SUM("}, "Invalid formula"},
		{"unknown function", []string{"calc", "=NOPE(1)"}, `Unknown function: "NOPE"`},
		{"too many tokens", []string{"--max-tokens", "3", "calc", "=1+2+3"}, "more than the limit of 3"},
		{"unknown sheet", []string{"calc", "--sheet", "Nope", "=1", writeBook(t, usBook)}, `sheet "Nope" not found`},
		{"unknown locale", []string{"--locale", "xx_XX", "calc", "=1"}, `unknown locale "xx_XX"`},
		{"bad output", []string{"-o", "html", "calc", "=1"}, `invalid output "html"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestTokens(t *testing.T) {
	out, err := run(t, "-o", "plain", "tokens", "=1+A2")
	require.NoError(t, err)
	assert.Equal(t, "OPERATOR\t=\t0\t1\nNUMBER\t1\t1\t2\nOPERATOR\t+\t2\t3\nREFERENCE\tA2\t3\t5\n", out)

	out, err = run(t, "tokens", "=SUM(1)")
	require.NoError(t, err)
	assert.Contains(t, out, "SYMBOL")
	assert.Contains(t, out, "KIND")
}

func TestCanonicalizeAndLocalize(t *testing.T) {
	out, err := run(t, "--locale", "fr_FR", "canonicalize", "=SUM(1,5;2)")
	require.NoError(t, err)
	assert.Equal(t, "=SUM(1.5,2)\n", out)

	out, err = run(t, "--locale", "de_DE", "canonicalize", "15.01.2024")
	require.NoError(t, err)
	assert.Equal(t, "1/15/2024\n", out)

	out, err = run(t, "--locale", "de_DE", "canonicalize", "--numbers-only", "15.01.2024")
	require.NoError(t, err)
	assert.Equal(t, "15.01.2024\n", out)

	out, err = run(t, "--locale", "fr_FR", "localize", "=IF(A1,1.5,2)")
	require.NoError(t, err)
	assert.Equal(t, "=IF(A1;1,5;2)\n", out)
}

func TestEval(t *testing.T) {
	out, err := run(t, "-o", "plain", "eval", writeBook(t, usBook))
	require.NoError(t, err)
	assert.Equal(t, "Sheet1!A1\t10%\t10%\t0%\t\n"+
		"Sheet1!B1\t=MUNIT(2)\t1\t\t\n"+
		"Sheet1!C1\t\t0\t\t\n"+
		"Sheet1!A2\t=A1*3\t30%\t0%\t\n"+
		"Sheet1!B2\t\t0\t\t\n"+
		"Sheet1!C2\t\t1\t\t\n", out)

	out, err = run(t, "-o", "plain", "--locale", "fr_FR", "eval", writeBook(t, frenchBook), writeBook(t, usBook))
	require.NoError(t, err)
	assert.Contains(t, out, "Feuille!A1\t1,5\t1,5\t\t\n")
	assert.Contains(t, out, "Feuille!A2\t=A1*2\t3\t\t\n")
	assert.Contains(t, out, "Sheet1!A2\t=A1*3\t30%\t0%\t\n")

	_, err = run(t, "eval")
	assert.ErrorContains(t, err, "at least one workbook")

	_, err = run(t, "eval", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read workbook")
}

func TestEvalWithStore(t *testing.T) {
	db := filepath.Join(t.TempDir(), "book.db")

	_, err := run(t, "--store", db, "eval")
	assert.ErrorContains(t, err, "is empty")

	out, err := run(t, "-o", "plain", "--store", db, "eval", writeBook(t, usBook))
	require.NoError(t, err)
	assert.Contains(t, out, "Sheet1!A2\t=A1*3\t30%\t0%\t\n")

	// the store keeps the workbook between runs
	out, err = run(t, "-o", "plain", "--store", db, "eval")
	require.NoError(t, err)
	assert.Contains(t, out, "Sheet1!C2\t\t1\t\t\n")

	out, err = run(t, "--store", db, "calc", "=A2*10")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)
}

func TestDeps(t *testing.T) {
	book := writeBook(t, usBook)
	out, err := run(t, "-o", "plain", "deps", book, "A2")
	require.NoError(t, err)
	assert.Equal(t, "Formula: =A1*3\nShape:   =|C0|*|N0|\nFormat:  format of A1\nSheet1!A1\t10%\n", out)

	_, err = run(t, "deps", book, "A1")
	assert.ErrorContains(t, err, "does not hold a formula")

	_, err = run(t, "deps", book, "Nope!A1")
	assert.ErrorContains(t, err, `sheet "Nope" not found`)
}

func TestExport(t *testing.T) {
	out, err := run(t, "--locale", "en_US", "export", writeBook(t, frenchBook))
	require.NoError(t, err)
	assert.Contains(t, out, "locale: en_US")
	assert.Contains(t, out, "name: Feuille")
	assert.Contains(t, out, "1.5")
	assert.Contains(t, out, "=A1*2")
}

func TestListings(t *testing.T) {
	out, err := run(t, "-o", "plain", "locales")
	require.NoError(t, err)
	assert.Contains(t, out, "fr_FR\tFrench\t,\t\" \"\t;\tdd/mm/yyyy\thh:mm:ss\n")

	out, err = run(t, "-o", "plain", "functions")
	require.NoError(t, err)
	assert.Contains(t, out, "SUM(")
	assert.Contains(t, out, "volatile")
}

func TestStarlarkFunctionsDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tax.star"), []byte(`
def vat(amount, rate = 0.2):
    return amount * (1 + rate)
`), 0o600))

	out, err := run(t, "--functions-dir", dir, "calc", "=TAX.VAT(100)")
	require.NoError(t, err)
	assert.Equal(t, "120\n", out)
}
