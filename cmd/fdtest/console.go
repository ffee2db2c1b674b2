package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/shlex"

	"github.com/ashajkofci/fdtest"
)

// Console is the operator shell of the test rig.
type Console struct {
	rig *fdtest.Rig
	rl  *readline.Instance
	out io.Writer
}

// NewConsole creates a console for rig and subscribes it to link traffic.
func NewConsole(rig *fdtest.Rig) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "fdtest> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	c := &Console{rig: rig, rl: rl, out: rl.Stdout()}
	c.watch()
	return c, nil
}

// Stderr returns a writer that does not garble the prompt.
func (c *Console) Stderr() io.Writer {
	return c.rl.Stderr()
}

func (c *Console) Close() {
	c.rl.Close()
}

func (c *Console) watch() {
	c.rig.Transport.Subscribe(fdtest.SignalACK, func(fdtest.Notification) {
		fmt.Fprintln(c.out, "RX: ACK")
	})
	c.rig.Transport.Subscribe(fdtest.SignalNACK, func(fdtest.Notification) {
		fmt.Fprintln(c.out, "RX: NACK")
	})
	c.rig.Transport.Subscribe(fdtest.SignalEOT, func(fdtest.Notification) {
		fmt.Fprintln(c.out, "RX: EOT")
	})
	c.rig.Transport.Subscribe(fdtest.SignalSent, func(n fdtest.Notification) {
		fmt.Fprintf(c.out, "tx: %s\n", hex.EncodeToString(n.Data))
	})
	c.rig.Scheduler.Subscribe(fdtest.SignalDelivered, func(n fdtest.Notification) {
		p, err := fdtest.DecodePreview(n.Data)
		if err != nil {
			fmt.Fprintf(c.out, "display: %v\n", err)
			return
		}
		fmt.Fprintf(c.out, "display %s %s\n", p.Command, p)
		if p.Blinking {
			fmt.Fprintf(c.out, "        blink [%s]\n", p.Back)
		}
	})
	c.rig.Scheduler.Subscribe(fdtest.SignalCommand, func(n fdtest.Notification) {
		if len(n.Data) > 0 {
			fmt.Fprintf(c.out, "command %s\n", fdtest.Command(n.Data[0]))
		}
	})
	c.rig.Scheduler.Subscribe(fdtest.SignalStopped, func(fdtest.Notification) {
		fmt.Fprintln(c.out, "test stopped")
	})
}

// Run reads commands until quit, EOF or ctx is done.
func (c *Console) Run(ctx context.Context) {
	defer c.rl.Close()

	c.printHelp()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			return
		}

		args, err := shlex.Split(strings.TrimSpace(line))
		if err != nil {
			fmt.Fprintf(c.out, "Cannot parse command: %v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		if !c.exec(strings.ToLower(args[0]), args[1:]) {
			fmt.Fprintln(c.out, "Exiting...")
			return
		}
	}
}

// exec runs one command. It returns false when the console should exit.
func (c *Console) exec(cmd string, args []string) bool {
	switch cmd {
	case "help", "?":
		c.printHelp()
	case "start", "s":
		c.report(c.rig.Start())
	case "stop", "x":
		c.report(c.rig.Stop())
	case "status", "st":
		c.cmdStatus()
	case "patterns", "p":
		c.cmdPatterns()
	case "ports":
		c.cmdPorts()
	case "send":
		c.cmdSend(args)
	case "config", "c":
		c.cmdConfig(args)
	case "quit", "exit", "q":
		return false
	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (c *Console) report(err error) {
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
	}
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
Flurdisplay test rig commands:
  start              - Open the port and cycle through the test patterns
  stop               - Blank the display and stop
  status             - Show scheduler and link state
  patterns           - List the configured test patterns
  ports              - List serial ports
  send <hex>         - Send a raw LR message (prefix 57 for a relay)
  config             - Show the active configuration
  config load <path> - Load a configuration file (test must be stopped)
  config save <path> - Save the active configuration
  help               - Show this help
  quit               - Exit`)
}

func (c *Console) cmdStatus() {
	st := c.rig.Status()
	fmt.Fprintf(c.out, "State:     %s\n", st.State)
	if st.RunID != "" {
		fmt.Fprintf(c.out, "Run:       %s\n", st.RunID)
	}
	fmt.Fprintf(c.out, "Command:   %s\n", st.Command)
	if st.Current.ID > 0 {
		fmt.Fprintf(c.out, "Pattern:   #%d %s/%s %q %q\n",
			st.Current.ID, st.Current.Name, st.Current.Type, st.Current.Text, st.Current.Location)
	}
	fmt.Fprintf(c.out, "ACKs:      %d/%d\n", st.AckCount, fdtest.ValidAckCount)
	fmt.Fprintf(c.out, "Port:      %s (open=%t)\n", st.Port, st.PortOpen)
	fmt.Fprintf(c.out, "Queue:     %d pending\n", st.Pending)
	fmt.Fprintf(c.out, "Link:      sent=%d ack=%d nack=%d dropped=%d\n",
		st.Transport.Sent, st.Transport.ACK, st.Transport.NACK, st.Transport.Dropped)
}

func (c *Console) cmdPatterns() {
	cfg := c.rig.Config()
	catalog := fdtest.NewCatalog(cfg.Events)
	if len(catalog) == 0 {
		fmt.Fprintln(c.out, "No test patterns configured")
		return
	}
	for _, ev := range catalog {
		fmt.Fprintf(c.out, "  #%-2d %-10s %-10s prio=%-3d text=%-8q loc=%-10q blink=%s tone=%s\n",
			ev.ID, ev.Name, ev.Type, ev.Priority, ev.Text, ev.Location, ev.Blink, ev.Tone)
	}
}

func (c *Console) cmdPorts() {
	ports, err := fdtest.ListPorts()
	if err != nil {
		c.report(err)
		return
	}
	for _, p := range ports {
		if p.IsUSB {
			fmt.Fprintf(c.out, "  %s  USB %s:%s %s\n", p.Name, p.VID, p.PID, p.Product)
		} else {
			fmt.Fprintf(c.out, "  %s\n", p.Name)
		}
	}
}

func (c *Console) cmdSend(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(c.out, "Usage: send <hex>")
		return
	}
	payload, err := hex.DecodeString(strings.Join(args, ""))
	if err != nil {
		c.report(fmt.Errorf("invalid hex: %w", err))
		return
	}
	c.report(c.rig.Send(payload))
}

func (c *Console) cmdConfig(args []string) {
	if len(args) == 0 {
		data, err := fdtest.MarshalConfig(c.rig.Config())
		if err != nil {
			c.report(err)
			return
		}
		fmt.Fprint(c.out, string(data))
		return
	}
	if len(args) != 2 {
		fmt.Fprintln(c.out, "Usage: config [load|save <path>]")
		return
	}
	switch args[0] {
	case "load":
		cfg, err := fdtest.LoadConfig(args[1])
		if err != nil {
			c.report(err)
			return
		}
		if err := c.rig.Reconfigure(cfg); err != nil {
			c.report(err)
			return
		}
		fmt.Fprintf(c.out, "Loaded %d patterns from %s\n", len(cfg.Events), args[1])
	case "save":
		c.report(fdtest.WriteConfig(args[1], c.rig.Config()))
	default:
		fmt.Fprintln(c.out, "Usage: config [load|save <path>]")
	}
}
