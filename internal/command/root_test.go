package command

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/adamavenir/agora/internal/core"
	"github.com/adamavenir/agora/internal/fakeapi"
	"github.com/adamavenir/agora/internal/types"
	"github.com/spf13/cobra"
)

func executeCommand(cmd *cobra.Command, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

// setupBackend starts a demo backend and points config at a temp dir.
func setupBackend(t *testing.T) (*fakeapi.Server, string) {
	t.Helper()
	srv, _ := fakeapi.NewDemo(nil)
	httpSrv := httptest.NewServer(srv)
	t.Cleanup(httpSrv.Close)

	dir := t.TempDir()
	t.Setenv("AGORA_BASE_URL", httpSrv.URL)
	t.Setenv("AGORA_CREDENTIALS", filepath.Join(dir, "credentials.json"))
	t.Setenv("AGORA_LOG_LEVEL", "error")
	return srv, filepath.Join(dir, "config.yaml")
}

func run(t *testing.T, configPath string, args ...string) string {
	t.Helper()
	output, err := executeCommand(NewRootCmd("test"), append([]string{"--config", configPath}, args...)...)
	if err != nil {
		t.Fatalf("agora %s: %v\n%s", strings.Join(args, " "), err, output)
	}
	return output
}

func login(t *testing.T, configPath string) {
	t.Helper()
	out := run(t, configPath, "login", "--token", "token-ada", "--user-id", "u-ada", "--name", "Ada Lovelace")
	if !strings.Contains(out, "Signed in as u-ada") {
		t.Fatalf("unexpected login output %q", out)
	}
}

func TestRootCommandVersion(t *testing.T) {
	cmd := NewRootCmd("test")

	output, err := executeCommand(cmd, "--version")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !strings.Contains(output, "agora version test") {
		t.Fatalf("expected version output, got %q", output)
	}
}

func TestRootCommandHelp(t *testing.T) {
	cmd := NewRootCmd("test")

	output, err := executeCommand(cmd)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !strings.Contains(output, "terminal client") {
		t.Fatalf("expected help output, got %q", output)
	}
}

func TestCommandWithoutCredentialsHints(t *testing.T) {
	_, configPath := setupBackend(t)

	output, err := executeCommand(NewRootCmd("test"), "--config", configPath, "ls")
	if err == nil {
		t.Fatalf("expected error without credentials")
	}
	if !strings.Contains(output, "agora login") {
		t.Fatalf("expected login hint, got %q", output)
	}
}

func TestConversationsListing(t *testing.T) {
	_, configPath := setupBackend(t)
	login(t, configPath)

	out := run(t, configPath, "ls")
	direct := strings.Index(out, "Grace Hopper")
	group := strings.Index(out, "Algorithms study group")
	if direct < 0 || group < 0 {
		t.Fatalf("expected both conversations, got:\n%s", out)
	}
	if direct > group {
		t.Fatalf("expected most recent conversation first, got:\n%s", out)
	}

	out = run(t, configPath, "ls", "--match", "algo*")
	if strings.Contains(out, "Grace Hopper") || !strings.Contains(out, "Algorithms study group") {
		t.Fatalf("expected filtered list, got:\n%s", out)
	}
}

func TestConversationsJSON(t *testing.T) {
	_, configPath := setupBackend(t)
	login(t, configPath)

	out := run(t, configPath, "--json", "ls")
	var payload struct {
		Conversations []struct {
			ID          string `json:"id"`
			DisplayName string `json:"displayName"`
		} `json:"conversations"`
		Unread uint `json:"unread"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(payload.Conversations) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(payload.Conversations))
	}
	if payload.Conversations[0].DisplayName != "Grace Hopper" {
		t.Fatalf("expected direct conversation named after the other participant, got %q", payload.Conversations[0].DisplayName)
	}
	if payload.Unread == 0 {
		t.Fatalf("expected seeded unread messages")
	}
}

func TestSendThreadAndReact(t *testing.T) {
	srv, configPath := setupBackend(t)
	login(t, configPath)
	directID := core.DirectConversationID("u-ada", "u-grace")

	out := run(t, configPath, "send", directID, "see", "you", "at", "5")
	id := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(out), "Sent #"))
	if id == "" || core.IsTempID(id) {
		t.Fatalf("expected server id, got %q", out)
	}

	out = run(t, configPath, "thread", directID)
	if !strings.Contains(out, "see you at 5") || !strings.Contains(out, "Due Friday.") {
		t.Fatalf("expected thread contents, got:\n%s", out)
	}

	out = run(t, configPath, "react", directID, id, "👍")
	if !strings.Contains(out, "Reacted") {
		t.Fatalf("expected reaction added, got %q", out)
	}
	out = run(t, configPath, "react", directID, id, "👍")
	if !strings.Contains(out, "Removed reaction") {
		t.Fatalf("expected reaction removed, got %q", out)
	}

	stored := srv.Messages(directID)
	last := stored[len(stored)-1]
	if last.Content != "see you at 5" || len(last.Reactions["👍"]) != 0 {
		t.Fatalf("unexpected stored message %+v", last)
	}
}

func TestEditRefusesOthersMessages(t *testing.T) {
	srv, configPath := setupBackend(t)
	login(t, configPath)
	directID := core.DirectConversationID("u-ada", "u-grace")
	first := srv.Messages(directID)[0]

	output, err := executeCommand(NewRootCmd("test"), "--config", configPath, "edit", directID, first.ID, "mine now")
	if err == nil {
		t.Fatalf("expected edit of another user's message to fail")
	}
	if !strings.Contains(output, "Error:") {
		t.Fatalf("expected error output, got %q", output)
	}
	if srv.Requests("editMessage") != 0 {
		t.Fatalf("expected no request for a refused edit")
	}
}

func TestSearchAndStart(t *testing.T) {
	srv, configPath := setupBackend(t)
	login(t, configPath)

	out := run(t, configPath, "search", "alan")
	if !strings.Contains(out, "u-alan") {
		t.Fatalf("expected search hit, got:\n%s", out)
	}

	out = run(t, configPath, "start", "u-alan")
	if !strings.Contains(out, "Alan Turing") {
		t.Fatalf("expected new direct conversation, got %q", out)
	}
	if srv.Requests("createConversation") != 1 {
		t.Fatalf("expected one create request, got %d", srv.Requests("createConversation"))
	}

	out = run(t, configPath, "start", "u-alan")
	if !strings.Contains(out, core.DirectConversationID("u-ada", "u-alan")) {
		t.Fatalf("expected reuse of the direct conversation, got %q", out)
	}
	if srv.Requests("createConversation") != 1 {
		t.Fatalf("expected existing conversation to be reused")
	}
}

func TestPinMovesConversationFirst(t *testing.T) {
	_, configPath := setupBackend(t)
	login(t, configPath)

	run(t, configPath, "pin", "Algorithms")
	out := run(t, configPath, "ls")
	if strings.Index(out, "Algorithms study group") > strings.Index(out, "Grace Hopper") {
		t.Fatalf("expected pinned conversation first, got:\n%s", out)
	}
}

func TestThreadFollowPrintsEachNewMessageOnce(t *testing.T) {
	srv, configPath := setupBackend(t)
	login(t, configPath)
	t.Setenv("AGORA_REFRESH_INTERVAL", "20ms")
	directID := core.DirectConversationID("u-ada", "u-grace")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		time.Sleep(60 * time.Millisecond)
		srv.AddMessage(types.Message{ConversationID: directID, SenderID: "u-grace", Content: "Room changed to B12"})
		// Three more polls: the third starts only after the second printed.
		seen := srv.Requests("messages")
		deadline := time.Now().Add(5 * time.Second)
		for srv.Requests("messages") < seen+3 && time.Now().Before(deadline) {
			time.Sleep(10 * time.Millisecond)
		}
		cancel()
	}()

	root := NewRootCmd("test")
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"--config", configPath, "thread", directID, "--follow"})
	if err := root.ExecuteContext(ctx); err != nil {
		t.Fatalf("thread --follow: %v\n%s", err, buf.String())
	}

	out := buf.String()
	if !strings.Contains(out, "Due Friday.") {
		t.Fatalf("expected history first, got:\n%s", out)
	}
	if n := strings.Count(out, "Room changed to B12"); n != 1 {
		t.Fatalf("expected the new message printed once, got %d times:\n%s", n, out)
	}
}
