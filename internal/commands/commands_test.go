package commands_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledgerflow/internal/accounts"
	"github.com/cleared-dev/ledgerflow/internal/commands"
)

const statement = "../../testdata/statement.csv"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := commands.NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

// newProject initializes a project in a temp dir and returns its path.
func newProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, err := run(t, "init", dir, "--name", "Test Biz")
	require.NoError(t, err)
	return dir
}

func TestInit_CreatesStructure(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, "init", dir, "--name", "Test Biz")
	require.NoError(t, err)
	assert.Contains(t, out, "Initialized ledgerflow project")

	for _, d := range []string{"accounts", "logs", "exports", "import", filepath.Join("import", "processed")} {
		info, err := os.Stat(filepath.Join(dir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir(), "%s should be a directory", d)
	}
	for _, f := range []string{"ledgerflow.yaml", "ledgerflow.db", ".gitignore", accounts.ChartFile} {
		_, err := os.Stat(filepath.Join(dir, f))
		assert.NoError(t, err, "file %s should exist", f)
	}
}

func TestInit_Config(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, "init", dir, "--name", "My Company", "--company", "acme")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "ledgerflow.yaml"))
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "name: My Company")
	assert.Contains(t, contents, "entity_type: proprietorship")
	assert.Contains(t, contents, "company_id: acme")
}

func TestInit_Accounts(t *testing.T) {
	dir := newProject(t)

	svc, err := accounts.Load(dir)
	require.NoError(t, err)
	assert.True(t, svc.Exists("1010"))
	assert.True(t, svc.Exists("3010"))

	out, err := run(t, "--repo", dir, "accounts")
	require.NoError(t, err)
	assert.Contains(t, out, "Bank - Current Account")
	assert.Contains(t, out, "Proprietor's Capital")

	out, err = run(t, "--repo", dir, "accounts", "--type", "equity")
	require.NoError(t, err)
	assert.Contains(t, out, "Proprietor's Capital")
	assert.NotContains(t, out, "Bank - Current Account")

	_, err = run(t, "--repo", dir, "accounts", "--type", "cash")
	assert.ErrorContains(t, err, "unknown account type")
}

func TestInit_RequiresName(t *testing.T) {
	_, err := run(t, "init", t.TempDir())
	assert.Error(t, err)
}

func TestCommands_NeedProject(t *testing.T) {
	_, err := run(t, "--repo", t.TempDir(), "accounts")
	assert.ErrorContains(t, err, "reading config")
}

func TestClassify(t *testing.T) {
	dir := newProject(t)

	out, err := run(t, "--repo", dir, "classify", "UPI ZOMATO DINNER", "--amount", "640", "--date", "2024-06-02")
	require.NoError(t, err)
	assert.Contains(t, out, "Category:     Meals")
	assert.Contains(t, out, "Account:      5200")
	assert.Contains(t, out, "(keyword)")
	assert.Contains(t, out, "Needs review: yes")

	_, err = run(t, "--repo", dir, "classify", "X", "--amount", "abc")
	assert.ErrorContains(t, err, "invalid amount")

	_, err = run(t, "--repo", dir, "classify", "X", "--amount", "10", "--type", "sideways")
	assert.Error(t, err)
}

func TestIngest_PostsInvoicePayment(t *testing.T) {
	dir := newProject(t)

	out, err := run(t, "--repo", dir, "document", "add", "--kind", "invoice", "--number", "1042",
		"--counterparty", "ABC Corp", "--amount", "11800", "--due", "2024-06-03")
	require.NoError(t, err)
	assert.Contains(t, out, "balance 11800.00")

	out, err = run(t, "--repo", dir, "ingest", statement)
	require.NoError(t, err)
	assert.Contains(t, out, "6 lines:")
	assert.Contains(t, out, "posted 2024-06-001")

	out, err = run(t, "--repo", dir, "document", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "ABC Corp", "paid invoice is no longer open")

	_, err = os.Stat(filepath.Join(dir, "logs", "decision-log.csv"))
	assert.NoError(t, err)

	out, err = run(t, "--repo", dir, "accounts")
	require.NoError(t, err)
	assert.Contains(t, out, "-11800.00")

	exportPath := filepath.Join(dir, "journal.csv")
	out, err = run(t, "--repo", dir, "export", "--out", exportPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported")

	data, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "entry_id,date,company_id")
	assert.Contains(t, string(data), "2024-06-001a")
	assert.Contains(t, string(data), "11800.00")
}

func TestIngest_DryRun(t *testing.T) {
	dir := newProject(t)

	out, err := run(t, "--repo", dir, "ingest", "--dry-run", statement)
	require.NoError(t, err)
	assert.Contains(t, out, "0 posted")

	_, err = os.Stat(filepath.Join(dir, "logs", "decision-log.csv"))
	assert.True(t, os.IsNotExist(err), "dry run writes no decision log")
}

func TestIngest_ScansImportDir(t *testing.T) {
	dir := newProject(t)

	data, err := os.ReadFile(statement)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "import", "june.csv"), data, 0o644))

	out, err := run(t, "--repo", dir, "ingest")
	require.NoError(t, err)
	assert.Contains(t, out, "june.csv")

	_, err = os.Stat(filepath.Join(dir, "import", "june.csv"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "import", "processed", "june.csv"))
	assert.NoError(t, err)

	out, err = run(t, "--repo", dir, "ingest")
	require.NoError(t, err)
	assert.Contains(t, out, "No statements")
}

func TestIngest_UnknownFormat(t *testing.T) {
	dir := newProject(t)
	_, err := run(t, "--repo", dir, "ingest", "--format", "ofx", statement)
	assert.ErrorContains(t, err, "unknown statement format")
}

func TestReconcile_SplitPaysBill(t *testing.T) {
	dir := newProject(t)

	_, err := run(t, "--repo", dir, "document", "add", "--kind", "bill", "--number", "B-77",
		"--counterparty", "Sharma Traders", "--amount", "5000", "--due", "2024-06-20")
	require.NoError(t, err)

	csvPath := filepath.Join(dir, "june.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(
		"date,description,amount,type\n"+
			"2024-06-05,IMPS TRANSFER 1,3000.00,debit\n"+
			"2024-06-05,IMPS TRANSFER 2,2000.00,debit\n"), 0o644))

	out, err := run(t, "--repo", dir, "reconcile", csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "split")
	assert.Contains(t, out, "2 lines: 2 matched (100%), 0 unmatched")
	assert.Contains(t, out, "1 applied, 4 journal lines posted")

	out, err = run(t, "--repo", dir, "document", "list", "--kind", "bill")
	require.NoError(t, err)
	assert.NotContains(t, out, "B-77")
}

func TestReconcile_DryRunAppliesNothing(t *testing.T) {
	dir := newProject(t)

	_, err := run(t, "--repo", dir, "document", "add", "--kind", "bill", "--number", "B-77",
		"--amount", "5000", "--due", "2024-06-20")
	require.NoError(t, err)

	csvPath := filepath.Join(dir, "june.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(
		"date,description,amount,type\n2024-06-05,IMPS TRANSFER 1,3000.00,debit\n2024-06-05,IMPS TRANSFER 2,2000.00,debit\n"), 0o644))

	out, err := run(t, "--repo", dir, "reconcile", "--dry-run", csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "0 applied")

	out, err = run(t, "--repo", dir, "document", "list", "--kind", "bill")
	require.NoError(t, err)
	assert.Contains(t, out, "B-77")
}

func TestPost(t *testing.T) {
	dir := newProject(t)

	out, err := run(t, "--repo", dir, "post", "--date", "2024-06-30", "--description", "Owner contribution",
		"--debit", "1010=50000", "--credit", "3010=50000")
	require.NoError(t, err)
	assert.Contains(t, out, "Posted 2024-06-001")
	assert.Contains(t, out, "2024-06-001a")
	assert.Contains(t, out, "2024-06-001b")
	assert.Contains(t, out, "Bank - Current Account")

	out, err = run(t, "--repo", dir, "accounts")
	require.NoError(t, err)
	assert.Contains(t, out, "50000.00")
}

func TestPost_Rejected(t *testing.T) {
	dir := newProject(t)

	tests := []struct {
		name string
		args []string
	}{
		{"unbalanced", []string{"--debit", "1010=100", "--credit", "3010=90"}},
		{"unknown account", []string{"--debit", "9999=100", "--credit", "3010=100"}},
		{"one line", []string{"--debit", "1010=100"}},
		{"malformed line", []string{"--debit", "1010", "--credit", "3010=100"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--repo", dir, "post", "--date", "2024-06-30"}, tt.args...)
			_, err := run(t, args...)
			assert.Error(t, err)
		})
	}

	out, err := run(t, "--repo", dir, "export", "--out", filepath.Join(dir, "journal.csv"))
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 0 journal lines")
}

func TestDocumentAdd_Invalid(t *testing.T) {
	dir := newProject(t)

	_, err := run(t, "--repo", dir, "document", "add", "--kind", "receipt", "--number", "1", "--amount", "10")
	assert.ErrorContains(t, err, "unknown document kind")

	_, err = run(t, "--repo", dir, "document", "add", "--number", "1", "--amount", "-10")
	assert.ErrorContains(t, err, "must be positive")

	_, err = run(t, "--repo", dir, "document", "add", "--number", "1", "--amount", "10", "--paid", "20")
	assert.Error(t, err)
}

func TestVendor(t *testing.T) {
	dir := newProject(t)

	_, err := run(t, "--repo", dir, "vendor", "add", "Sharma Traders", "--category", "Office Supplies")
	require.NoError(t, err)

	_, err = run(t, "--repo", dir, "vendor", "add", "Nobody", "--category", "Yachts")
	assert.ErrorContains(t, err, "unknown category")

	out, err := run(t, "--repo", dir, "vendor", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Sharma Traders\tOffice Supplies")
	assert.NotContains(t, out, "Nobody")
}
