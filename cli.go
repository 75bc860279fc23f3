package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/godbus/dbus/v5"
	"golang.org/x/term"

	"iwdtui/internal/notify"
	"iwdtui/iwd"
)

const cliTimeout = 30 * time.Second

// prepare runs one synchronous refresh so a command operates on a fresh
// snapshot, and returns the selected station path.
func prepare(ctx context.Context, client *iwd.Client) (*iwd.Synchronizer, dbus.ObjectPath, error) {
	sync := iwd.NewSynchronizer(client, 0)
	if err := sync.Sync(ctx); err != nil {
		return nil, "", err
	}
	station, _ := sync.Device()
	return sync, station, nil
}

func runStatus(w io.Writer, jsonOut bool, client *iwd.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), cliTimeout)
	defer cancel()
	sync, _, err := prepare(ctx, client)
	if err != nil {
		return err
	}
	st := sync.State()

	if jsonOut {
		return json.NewEncoder(w).Encode(struct {
			Name     string `json:"name"`
			State    string `json:"state"`
			SSID     string `json:"ssid,omitempty"`
			Scanning bool   `json:"scanning"`
		}{st.Name, st.State.String(), st.SSID, st.Scanning})
	}

	fmt.Fprintf(w, "Device: %s\n", st.Name)
	fmt.Fprintf(w, "State: %s\n", st.State)
	if st.SSID != "" {
		fmt.Fprintf(w, "Network: %s\n", st.SSID)
	}
	fmt.Fprintf(w, "Scanning: %t\n", st.Scanning)
	return nil
}

func runList(w io.Writer, jsonOut, knownOnly bool, client *iwd.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), cliTimeout)
	defer cancel()
	_, station, err := prepare(ctx, client)
	if err != nil {
		return err
	}

	if knownOnly {
		known := client.KnownNetworks()
		if jsonOut {
			return json.NewEncoder(w).Encode(known)
		}
		for _, k := range known {
			last := "never"
			if !k.LastConnected.IsZero() {
				last = formatDuration(k.LastConnected)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", k.Name, k.Type, last)
		}
		return nil
	}

	networks, err := client.OrderedNetworks(ctx, station)
	if err != nil {
		return err
	}
	if jsonOut {
		return json.NewEncoder(w).Encode(networks)
	}
	for _, n := range networks {
		flags := ""
		if n.Connected {
			flags += " connected"
		}
		if n.Known {
			flags += " known"
		}
		fmt.Fprintf(w, "%s\t%s\t%d%%%s\n", n.Name, n.Type, iwd.SignalPercent(n.Strength), flags)
	}
	return nil
}

func runScan(client *iwd.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), cliTimeout)
	defer cancel()
	_, station, err := prepare(ctx, client)
	if err != nil {
		return err
	}
	return client.Scan(ctx, station)
}

func runDisconnect(client *iwd.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), cliTimeout)
	defer cancel()
	_, station, err := prepare(ctx, client)
	if err != nil {
		return err
	}
	return client.Disconnect(ctx, station)
}

func runForget(client *iwd.Client, ssid string) error {
	ctx, cancel := context.WithTimeout(context.Background(), cliTimeout)
	defer cancel()
	if _, _, err := prepare(ctx, client); err != nil {
		return err
	}
	network, ok := client.NetworkByName(ssid)
	if !ok {
		return fmt.Errorf("network %q: %w", ssid, iwd.ErrNotFound)
	}
	return client.Forget(ctx, network)
}

// runConnect activates the agent for the duration of the attempt so the
// daemon can ask for a passphrase, then waits for the outcome.
func runConnect(w io.Writer, client *iwd.Client, ssid, passphrase string) error {
	ctx, cancel := context.WithTimeout(context.Background(), cliTimeout)
	defer cancel()
	sync, _, err := prepare(ctx, client)
	if err != nil {
		return err
	}
	network, ok := client.NetworkByName(ssid)
	if !ok {
		return fmt.Errorf("network %q: %w", ssid, iwd.ErrNotFound)
	}

	var prompt iwd.SecretPrompt = terminalPrompt{}
	if passphrase != "" {
		prompt = iwd.PromptFunc(func(ctx context.Context, ssid string) (string, error) {
			return passphrase, nil
		})
	}

	agent := iwd.NewAgent(client, sync, prompt)
	if err := agent.Activate(ctx); err != nil {
		return err
	}
	defer agent.Deactivate(context.Background())

	op := client.Connect(network, notify.Writer{W: w})
	return op.Wait(ctx)
}

// terminalPrompt reads a passphrase from the controlling terminal with echo
// off.
type terminalPrompt struct{}

func (terminalPrompt) RequestPassphrase(ctx context.Context, ssid string) (string, error) {
	fmt.Fprintf(os.Stderr, "Passphrase for %s: ", ssid)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", iwd.ErrPromptCanceled
	}
	return string(secret), nil
}

func runShare(w io.Writer, ssid, passphrase, security string, hidden bool) error {
	code, err := GenerateWifiQRCode(ssid, passphrase, security, hidden)
	if err != nil {
		return fmt.Errorf("generating QR code: %w", err)
	}
	fmt.Fprintln(w, code)
	return nil
}
