package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"oap/internal/api"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	for _, key := range []string{"OAP_API_TOKEN", "OAP_MYSQL_DSN", "OAP_SMTP_PASSWORD", "OAP_NTFY_TOPIC"} {
		t.Setenv(key, "")
	}
	dataDir := filepath.Join(base, "data")
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\nlog_dir = %q\n\n[server]\nbind = \"127.0.0.1:0\"\n\n[store]\ndriver = \"sqlite\"\nsqlite_path = %q\n",
		dataDir,
		filepath.Join(dataDir, "logs"),
		filepath.Join(dataDir, "oap.db"),
	)
	configPath := filepath.Join(base, "oap.toml")
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{baseDir: base, configPath: configPath}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func mustRun(t *testing.T, env *cliTestEnv, args ...string) string {
	t.Helper()
	out, stderr, err := runCLI(t, args, env.configPath)
	if err != nil {
		t.Fatalf("oap %s: %v (stderr: %s)", strings.Join(args, " "), err, stderr)
	}
	return out
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func writeBatch(t *testing.T, env *cliTestEnv) string {
	t.Helper()
	path := filepath.Join(env.baseDir, "batch.yaml")
	content := strings.Join([]string{
		"- requestId: REQ-1",
		"  userId: jdoe",
		"  controller: lab-ctl-1",
		"  sut: adl-01",
		"- requestId: REQ-2",
		"  userId: jdoe",
		"  controller: lab-ctl-1",
		"  sut: adl-02",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write batch: %v", err)
	}
	return path
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRun(t, env, "config", "validate")
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "Store driver: sqlite")

	target := filepath.Join(t.TempDir(), "config.toml")
	out = mustRun(t, env, "config", "init", "--path", target)
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}

func TestProvisionLifecycle(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRun(t, env, "user", "add", "jdoe", "--wwid", "w-1", "--email", "jdoe@example.com", "--first-name", "jane", "--last-name", "doe")

	out := mustRun(t, env, "provision", "import", writeBatch(t, env))
	requireContains(t, out, "Imported 2 records")

	out = mustRun(t, env, "provision", "list", "--json", "--sort", "requestId", "--order", "asc")
	var page struct {
		Data       []api.Record `json:"data"`
		TotalPages int          `json:"totalPages"`
	}
	if err := json.Unmarshal([]byte(out), &page); err != nil {
		t.Fatalf("decode list output: %v\n%s", err, out)
	}
	if len(page.Data) != 2 || page.Data[0].RequestID != "REQ-1" || page.TotalPages != 1 {
		t.Fatalf("unexpected listing: %+v", page)
	}
	if page.Data[0].Email != "jdoe@example.com" || page.Data[0].WWID != "w-1" {
		t.Fatalf("expected contact details from the users table, got %+v", page.Data[0])
	}

	out = mustRun(t, env, "provision", "set", "1", "ifwi", "in_progress")
	requireContains(t, out, "ifwi -> In Progress")

	out = mustRun(t, env, "provision", "active", "lab-ctl-1", "--json")
	var active []api.ActiveWork
	if err := json.Unmarshal([]byte(out), &active); err != nil {
		t.Fatalf("decode active output: %v", err)
	}
	if len(active) != 1 || active[0].ProvisionID != 1 {
		t.Fatalf("unexpected active work: %+v", active)
	}

	mustRun(t, env, "provision", "set", "1", "ifwi", "PASS", "--link", "http://results/1")
	out = mustRun(t, env, "provision", "set", "1", "ifwi", "FAIL")
	requireContains(t, out, "unchanged")

	out = mustRun(t, env, "provision", "show", "1", "--json")
	var rec api.Record
	if err := json.Unmarshal([]byte(out), &rec); err != nil {
		t.Fatalf("decode show output: %v", err)
	}
	if rec.IFWIStatus != "PASS" || rec.IFWIResultLink != "http://results/1" {
		t.Fatalf("unexpected record after transitions: %+v", rec)
	}

	out = mustRun(t, env, "provision", "latest", "--sut", "adl", "--controller", "ctl-1", "--json")
	var latest []api.Record
	if err := json.Unmarshal([]byte(out), &latest); err != nil {
		t.Fatalf("decode latest output: %v", err)
	}
	if len(latest) != 1 || latest[0].RequestID != "REQ-2" {
		t.Fatalf("unexpected latest: %+v", latest)
	}

	out = mustRun(t, env, "provision", "list")
	requireContains(t, out, "REQ-1")
	requireContains(t, out, "IFWI")
}

func TestProvisionSetRejectsUnknownStage(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRun(t, env, "provision", "import", writeBatch(t, env))

	if _, _, err := runCLI(t, []string{"provision", "set", "1", "firmware", "PASS"}, env.configPath); err == nil {
		t.Fatal("expected unknown stage to fail")
	}
	if _, _, err := runCLI(t, []string{"provision", "set", "zero", "ifwi", "PASS"}, env.configPath); err == nil {
		t.Fatal("expected bad id to fail")
	}
}

func TestMasterSequence(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRun(t, env, "master", "latest")
	requireContains(t, out, "No batches issued")

	requireContains(t, mustRun(t, env, "master", "issue", "--user", "jdoe"), "Global id 1")
	requireContains(t, mustRun(t, env, "master", "issue", "--user", "asmith"), "Global id 2")

	out = mustRun(t, env, "master", "latest", "--json")
	var batch api.Batch
	if err := json.Unmarshal([]byte(out), &batch); err != nil {
		t.Fatalf("decode batch: %v", err)
	}
	if batch.GlobalID != 2 || batch.UserID != "asmith" {
		t.Fatalf("unexpected latest batch: %+v", batch)
	}
}

func TestControllersAndPlatforms(t *testing.T) {
	env := setupCLITestEnv(t)

	requireContains(t, mustRun(t, env, "controller", "add", "lab-ctl-1", "--location", "Lab 3"), "Controller lab-ctl-1 added")
	out := mustRun(t, env, "controller", "list")
	requireContains(t, out, "lab-ctl-1")
	requireContains(t, out, "Lab 3")

	requireContains(t, mustRun(t, env, "platform", "add", "ADL"), "Platform ADL added")
	requireContains(t, mustRun(t, env, "platform", "list"), "ADL")
}

func TestPreflightCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	out := mustRun(t, env, "preflight")
	requireContains(t, out, "Data directory:")
	requireContains(t, out, "Store (sqlite):")
	requireContains(t, out, "daemon not running")
}

func TestMemoryDriverRejectedForStoreCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	content := "[store]\ndriver = \"memory\"\n[paths]\ndata_dir = " + fmt.Sprintf("%q", filepath.Join(env.baseDir, "mem")) + "\n"
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, err := runCLI(t, []string{"master", "latest"}, env.configPath); err == nil {
		t.Fatal("expected memory driver to be rejected")
	}
}
