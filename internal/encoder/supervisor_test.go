package encoder

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"testing"
	"time"

	"mediakiller/internal/progress"
)

// TestHelperProcess is not a real test. It stands in for the encoder when
// re-executed by helperSpec.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	mode := ""
	for i, a := range os.Args {
		if a == "--" && i+1 < len(os.Args) {
			mode = os.Args[i+1]
			break
		}
	}
	switch mode {
	case "progress":
		fmt.Fprintln(os.Stderr, "Input #0, mov,mp4,m4a,3gp,3g2,mj2, from 'clip.mp4':")
		fmt.Fprint(os.Stderr, "frame=   10 fps=0.0 q=28.0 size=       0kB time=00:00:00.40 bitrate=   0.0kbits/s speed=0.8x\r")
		fmt.Fprint(os.Stderr, "frame=   50 fps= 49 q=28.0 size=     256kB time=00:00:02.00 bitrate=1048.6kbits/s speed=1.96x\r")
		fmt.Fprintln(os.Stderr, "frame=  100 fps= 50 q=-1.0 Lsize=     512kB time=00:00:04.00 bitrate=1048.6kbits/s speed=2.0x")
		os.Exit(0)
	case "progress-stdout":
		fmt.Fprintln(os.Stdout, "frame=12")
		fmt.Fprintln(os.Stdout, "out_time=00:00:00.500000")
		fmt.Fprintln(os.Stdout, "progress=end")
		os.Exit(0)
	case "fail":
		fmt.Fprintln(os.Stderr, "clip.mp4: Invalid data found when processing input")
		os.Exit(3)
	case "quit":
		// Behaves like ffmpeg: exits cleanly once "q" arrives on stdin.
		fmt.Fprintln(os.Stderr, "frame=    1 fps=0.0 q=0.0 size=       0kB time=00:00:00.04 bitrate=N/A speed=N/A")
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				os.Exit(1)
			}
			if n == 1 && buf[0] == 'q' {
				fmt.Fprintln(os.Stderr, "[q] command received. Exiting.")
				os.Exit(0)
			}
		}
	case "stubborn":
		fmt.Fprintln(os.Stderr, "frame=    1 fps=0.0 q=0.0 size=       0kB time=00:00:00.04 bitrate=N/A speed=N/A")
		time.Sleep(time.Minute)
		os.Exit(0)
	}
	os.Exit(2)
}

func helperSpec(mode string, statuses chan<- progress.CodingStatus) Spec {
	return Spec{
		Path:     os.Args[0],
		Args:     []string{"-test.run=TestHelperProcess", "--", mode},
		Env:      []string{"GO_WANT_HELPER_PROCESS=1"},
		Statuses: statuses,
	}
}

func TestSupervisor_RunSuccess(t *testing.T) {
	statuses := make(chan progress.CodingStatus, 16)
	res := NewSupervisor().Run(context.Background(), helperSpec("progress", statuses))
	close(statuses)

	if !res.Success || res.Cancelled || res.ExitCode != 0 || res.Err != nil {
		t.Fatalf("Run() = %+v, want success", res)
	}
	var got []progress.CodingStatus
	for st := range statuses {
		got = append(got, st)
	}
	if len(got) != 3 {
		t.Fatalf("got %d statuses, want 3", len(got))
	}
	var last time.Duration
	for i, st := range got {
		if st.Time == nil {
			t.Fatalf("status %d has no time", i)
		}
		if *st.Time < last {
			t.Errorf("status %d time went backwards: %v < %v", i, *st.Time, last)
		}
		last = *st.Time
	}
	final := got[2]
	if final.Frame == nil || *final.Frame != 100 {
		t.Errorf("final frame = %v, want 100", final.Frame)
	}
	if len(res.Tail) == 0 || res.Tail[0] != "Input #0, mov,mp4,m4a,3gp,3g2,mj2, from 'clip.mp4':" {
		t.Errorf("Tail = %q", res.Tail)
	}
}

func TestSupervisor_StdoutStatuses(t *testing.T) {
	statuses := make(chan progress.CodingStatus, 16)
	res := NewSupervisor().Run(context.Background(), helperSpec("progress-stdout", statuses))
	close(statuses)
	if !res.Success {
		t.Fatalf("Run() = %+v, want success", res)
	}
	var last progress.CodingStatus
	n := 0
	for st := range statuses {
		last = st
		n++
	}
	if n != 2 {
		t.Fatalf("got %d statuses, want 2", n)
	}
	// Key=value lines accumulate into one snapshot.
	if last.Frame == nil || *last.Frame != 12 || last.Time == nil || *last.Time != 500*time.Millisecond {
		t.Errorf("merged status = %+v", last)
	}
}

func TestSupervisor_RunFailure(t *testing.T) {
	res := NewSupervisor().Run(context.Background(), helperSpec("fail", nil))
	if res.Success || res.Cancelled {
		t.Fatalf("Run() = %+v, want plain failure", res)
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
	if res.Err == nil {
		t.Errorf("Err = nil, want exit error")
	}
}

func TestSupervisor_MissingBinary(t *testing.T) {
	statuses := make(chan progress.CodingStatus, 1)
	res := NewSupervisor().Run(context.Background(), Spec{Path: "/nonexistent/ffmpeg", Statuses: statuses})
	if res.Success || res.Err == nil || res.ExitCode != -1 {
		t.Fatalf("Run() = %+v, want spawn failure", res)
	}
	if res.Elapsed <= 0 {
		t.Errorf("Elapsed = %v, want the time spent trying to start", res.Elapsed)
	}
	if len(statuses) != 0 {
		t.Errorf("got %d statuses from a process that never started", len(statuses))
	}
}

func TestStart_PipeFailureLeavesNothingRunning(t *testing.T) {
	cmd := exec.Command(os.Args[0], "-test.run=TestHelperProcess")
	cmd.Stdout = io.Discard // StdoutPipe refuses an already set Stdout
	_, _, _, err := start(cmd)
	if err == nil {
		t.Fatal("start() = nil error, want a pipe error")
	}
	if cmd.Process != nil {
		t.Errorf("process %d was started despite the pipe error", cmd.Process.Pid)
	}
}

func TestSupervisor_GracefulQuit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	statuses := make(chan progress.CodingStatus, 16)

	// A long grace proves the process left on "q" rather than being killed.
	sup := NewSupervisor(WithGrace(30 * time.Second))
	done := make(chan Result, 1)
	go func() { done <- sup.Run(ctx, helperSpec("quit", statuses)) }()

	select {
	case <-statuses:
	case <-time.After(10 * time.Second):
		t.Fatal("no status from helper")
	}
	cancel()

	select {
	case res := <-done:
		if res.Success {
			t.Errorf("cancelled run reported success: %+v", res)
		}
		if !res.Cancelled {
			t.Errorf("Cancelled = false")
		}
		if res.ExitCode != 0 {
			t.Errorf("ExitCode = %d, want 0 from a clean quit", res.ExitCode)
		}
		if res.Err != nil {
			t.Errorf("Err = %v, want nil for cancellation", res.Err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("helper did not honor quit request")
	}
}

func TestSupervisor_KillAfterGrace(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	statuses := make(chan progress.CodingStatus, 16)
	sup := NewSupervisor(WithGrace(100 * time.Millisecond))
	done := make(chan Result, 1)
	go func() { done <- sup.Run(ctx, helperSpec("stubborn", statuses)) }()

	<-statuses
	cancel()
	select {
	case res := <-done:
		if res.Success || !res.Cancelled {
			t.Errorf("Run() = %+v, want cancelled", res)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("stubborn helper was not killed")
	}
}

func TestSupervisor_ForceSkipsGrace(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	force := make(chan struct{})
	statuses := make(chan progress.CodingStatus, 16)
	spec := helperSpec("stubborn", statuses)
	spec.Force = force

	sup := NewSupervisor(WithGrace(time.Minute))
	done := make(chan Result, 1)
	go func() { done <- sup.Run(ctx, spec) }()

	<-statuses
	cancel()
	close(force)
	select {
	case res := <-done:
		if !res.Cancelled {
			t.Errorf("Cancelled = false")
		}
	case <-time.After(10 * time.Second):
		t.Fatal("force did not cut the grace period")
	}
}

func TestSupervisor_Timeout(t *testing.T) {
	spec := helperSpec("stubborn", nil)
	spec.Timeout = 200 * time.Millisecond
	res := NewSupervisor(WithGrace(100*time.Millisecond)).Run(context.Background(), spec)
	if !res.TimedOut || !res.Cancelled || res.Success {
		t.Errorf("Run() = %+v, want timed out", res)
	}
}
