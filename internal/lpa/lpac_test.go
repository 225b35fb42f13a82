package lpa

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeLpac re-runs the test binary as a stand-in for lpac. The helper
// process plays the named scenario.
func fakeLpac(scenario string, extraEnv ...string) commandFunc {
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cs := append([]string{"-test.run=TestHelperProcess", "--", name}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "LPAC_TEST_SCENARIO="+scenario)
		cmd.Env = append(cmd.Env, extraEnv...)
		return cmd
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "no command")
		os.Exit(2)
	}
	args = args[2:] // drop "--" and the binary name

	cmd := strings.Join(args, " ")
	if strings.HasPrefix(cmd, "notification process") {
		if marker := os.Getenv("LPAC_TEST_MARKER"); marker != "" {
			_ = os.WriteFile(marker, []byte(os.Getenv("DRIVER_IFID")), 0600)
		}
		fmt.Println(`{"type":"lpa","payload":{"code":0,"message":"success","data":[]}}`)
		os.Exit(0)
	}

	switch os.Getenv("LPAC_TEST_SCENARIO") {
	case "list":
		if _, ok := os.LookupEnv("DRIVER_IFID"); ok {
			fmt.Fprintln(os.Stderr, "DRIVER_IFID must not be set for list")
			os.Exit(3)
		}
		fmt.Println(`{"type":"driver","payload":{"code":0,"message":"success","data":[{"env":"0","name":"Reader A"},{"env":"x","name":"Odd"},{"env":"2","name":"Reader C"}]}}`)

	case "download-ok":
		want := "profile download -s rsp.example.com -m ABCD -c 1234"
		if cmd != want || os.Getenv("DRIVER_IFID") != "1" || os.Getenv("LPAC_APDU") != "pcsc" {
			fmt.Fprintf(os.Stderr, "unexpected invocation %q ifid=%q\n", cmd, os.Getenv("DRIVER_IFID"))
			os.Exit(3)
		}
		fmt.Println("lpac starting")
		for _, step := range []string{
			"es10b_get_euicc_challenge_and_info",
			"es9p_initiate_authentication",
			"es10b_authenticate_server",
			"es9p_authenticate_client",
			"es10b_prepare_download",
			"es9p_get_bound_profile_package",
			"es10b_load_bound_profile_package",
		} {
			fmt.Printf(`{"type":"progress","payload":{"code":0,"message":%q,"data":null}}`+"\n", step)
		}
		fmt.Println(`{"type":"lpa","payload":{"code":0,"message":"success","data":null}}`)

	case "download-fail":
		fmt.Println(`{"type":"progress","payload":{"code":0,"message":"es10b_get_euicc_challenge_and_info","data":null}}`)
		fmt.Println(`{"type":"progress","payload":{"code":0,"message":"es9p_initiate_authentication","data":null}}`)
		fmt.Println(`{"type":"lpa","payload":{"code":-1,"message":"es9p_initiate_authentication","data":"8.1 - invalid SM-DP+ address"}}`)
		os.Exit(255)

	case "no-result":
		fmt.Fprintln(os.Stderr, "SCardEstablishContext failed")
		os.Exit(1)

	case "hang":
		time.Sleep(30 * time.Second)
	}
	os.Exit(0)
}

func TestLpacBackend_Slots(t *testing.T) {
	b := NewLpacBackend("lpac")
	b.command = fakeLpac("list")

	slots, err := b.Slots(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Slot{{ID: 0, Name: "Reader A"}, {ID: 2, Name: "Reader C"}}, slots)
}

func TestLpacBackend_DownloadSuccess(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "notified")
	b := NewLpacBackend("lpac", WithNotifyAfterDownload(func() bool { return true }))
	b.command = fakeLpac("download-ok", "LPAC_TEST_MARKER="+marker)

	var stages []Stage
	var percents []int
	err := b.Download(context.Background(), DownloadRequest{
		Slot:             1,
		SMDP:             "rsp.example.com",
		MatchingID:       "ABCD",
		ConfirmationCode: "1234",
	}, func(s Stage, p int) {
		stages = append(stages, s)
		percents = append(percents, p)
	})
	require.NoError(t, err)

	assert.Equal(t, StagePreparing, stages[0])
	assert.Equal(t, StageNotifying, stages[len(stages)-1])
	assert.Contains(t, stages, StageInstalling)
	assert.IsIncreasing(t, percents)

	got, err := os.ReadFile(marker)
	require.NoError(t, err, "notifications should have been processed")
	assert.Equal(t, "1", string(got))
}

func TestLpacBackend_DownloadSkipsNotificationsWhenDisabled(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "notified")
	b := NewLpacBackend("lpac")
	b.command = fakeLpac("download-ok", "LPAC_TEST_MARKER="+marker)

	err := b.Download(context.Background(), DownloadRequest{
		Slot: 1, SMDP: "rsp.example.com", MatchingID: "ABCD", ConfirmationCode: "1234",
	}, nil)
	require.NoError(t, err)

	_, err = os.Stat(marker)
	assert.True(t, os.IsNotExist(err))
}

func TestLpacBackend_DownloadFailure(t *testing.T) {
	b := NewLpacBackend("lpac")
	b.command = fakeLpac("download-fail")

	err := b.Download(context.Background(), DownloadRequest{Slot: 0, SMDP: "rsp.example.com"}, nil)
	require.Error(t, err)

	var de *DownloadError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, StageAuthenticating, de.Stage)
	assert.Equal(t, "es9p_initiate_authentication", de.Reason)
	assert.Equal(t, "8.1 - invalid SM-DP+ address", de.Message)
	assert.True(t, de.Retryable)
}

func TestLpacBackend_NoResult(t *testing.T) {
	b := NewLpacBackend("lpac")
	b.command = fakeLpac("no-result")

	err := b.Download(context.Background(), DownloadRequest{Slot: 0, SMDP: "rsp.example.com"}, nil)
	require.Error(t, err)

	de := AsDownloadError(err)
	assert.Equal(t, ReasonInternal, de.Reason)
	assert.Contains(t, de.Message, "SCardEstablishContext failed")
}

func TestLpacBackend_Cancel(t *testing.T) {
	b := NewLpacBackend("lpac")
	b.command = fakeLpac("hang")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := b.Download(ctx, DownloadRequest{Slot: 0, SMDP: "rsp.example.com"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, &DownloadError{Reason: ReasonCancelled}))
}

func TestLpacBackend_InvalidRequest(t *testing.T) {
	b := NewLpacBackend("lpac")
	b.command = func(context.Context, string, ...string) *exec.Cmd {
		t.Fatal("lpac must not run for an invalid request")
		return nil
	}

	err := b.Download(context.Background(), DownloadRequest{Slot: 0, SMDP: "https://bad"}, nil)
	require.Error(t, err)
	assert.Equal(t, ReasonInternal, AsDownloadError(err).Reason)
}

func TestDecodeOutput(t *testing.T) {
	input := strings.Join([]string{
		"not json",
		"",
		`{"type":"progress","payload":{"code":0,"message":"es10b_prepare_download","data":null}}`,
		`{"type":"other","payload":{}}`,
		`{"type":"lpa","payload":{"code":-1,"message":"es10b_prepare_download","data":{"detail":1}}}`,
	}, "\n")

	var progress []string
	result, err := decodeOutput(strings.NewReader(input), func(p lpacPayload) {
		progress = append(progress, p.Message)
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, []string{"es10b_prepare_download"}, progress)
	assert.Equal(t, -1, result.Payload.Code)
	assert.Equal(t, `{"detail":1}`, result.Payload.dataString())
}
