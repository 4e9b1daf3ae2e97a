package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/echosoundlab/sessionguard/internal/adapter"
	"github.com/echosoundlab/sessionguard/internal/audit"
	"github.com/echosoundlab/sessionguard/internal/authority"
	"github.com/echosoundlab/sessionguard/internal/capability"
	"github.com/echosoundlab/sessionguard/internal/clock"
	"github.com/echosoundlab/sessionguard/internal/composite"
	"github.com/echosoundlab/sessionguard/internal/execute"
	"github.com/echosoundlab/sessionguard/internal/preset"
)

func init() {
	rootCmd.AddCommand(demoCmd)
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a scripted session against the kernel",
	Long: "Grants the full-mixing preset to a fresh authority, then walks the\n" +
		"decision surface: allowed edits, consent-gated exports, structural\n" +
		"violations, composite-chain escalation, and the identity halt.",
	RunE: runDemo,
}

var (
	okColor   = color.New(color.FgGreen)
	stopColor = color.New(color.FgYellow)
	denyColor = color.New(color.FgRed)
)

func runDemo(cmd *cobra.Command, args []string) error {
	const appID = "echo-sound-lab"

	now := clock.System()
	sink := audit.NewMemory()
	auth := authority.New(now, sink)
	ad := adapter.New(appID, sink, now)

	fmt.Println("=== sessionguard demo ===")
	fmt.Printf("Session %s, app %q, preset full-mixing (ttl 5m)\n\n", auth.SessionID(), appID)

	grants, err := preset.ByName("full-mixing", appID, 5*time.Minute, now)
	if err != nil {
		return err
	}
	for _, g := range grants {
		if err := auth.Grant(g); err != nil {
			return err
		}
	}

	step := func(label string, fn func() error) {
		err := fn()
		switch {
		case err == nil:
			okColor.Printf("  GRANTED  %s\n", label)
		default:
			switch err.(type) {
			case *execute.ConsentRequiredError:
				stopColor.Printf("  CONSENT  %s: %v\n", label, err)
			case *adapter.ViolationError:
				denyColor.Printf("  VIOLATION %s: %v\n", label, err)
			default:
				denyColor.Printf("  DENIED   %s: %v\n", label, err)
			}
		}
	}

	run := func(req capability.Request) error {
		_, err := execute.Run(auth, req, nil, func() (struct{}, error) {
			return struct{}{}, nil
		})
		return err
	}

	step("adjust reverb_mix", func() error { return run(ad.ParameterRequest("reverb_mix")) })
	step("toggle autosave_enabled (side-effect param)", func() error { return run(ad.ParameterRequest("autosave_enabled")) })
	step("export stem mixdown", func() error { return run(ad.ProcessingRequest("mixdown", capability.ReversibleNone)) })
	step("batch export one job", func() error {
		req, err := ad.BatchExportRequest([]string{"job-1"})
		if err != nil {
			return err
		}
		return run(req)
	})
	step("batch export two jobs at once", func() error {
		_, err := ad.BatchExportRequest([]string{"job-1", "job-2"})
		return err
	})
	step("write mix to render.wav", func() error {
		req, err := ad.WriteRequest("out/render.wav", "demo")
		if err != nil {
			return err
		}
		return run(req)
	})
	step("write to startup.sh", func() error {
		_, err := ad.WriteRequest("startup.sh", "demo")
		return err
	})

	chain := make([]composite.Action, 6)
	for i := range chain {
		chain[i] = composite.Action{Reversibility: capability.ReversibleFull, Description: "nudge eq band"}
	}
	step("chain of 6 reversible edits", func() error { return run(ad.ChainRequest(chain)) })

	launched := time.Now()
	auth.BindIdentity(capability.ProcessIdentity{PID: 4242, LaunchedAt: launched})
	restarted := &capability.ProcessIdentity{PID: 4242, LaunchedAt: launched.Add(3 * time.Second)}
	step("transport play after in-place restart", func() error {
		_, err := auth.AssertAllowed(ad.TransportRequest("play"), restarted)
		return err
	})
	step("adjust reverb_mix after halt", func() error { return run(ad.ParameterRequest("reverb_mix")) })

	fmt.Printf("\nAudit trail: %d events recorded\n", len(sink.Events()))
	return nil
}
