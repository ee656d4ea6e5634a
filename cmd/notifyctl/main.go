// notifyctl is the operator CLI for the notify gateway HTTP API.
//
// Usage:
//
//	notifyctl [-addr URL] [-token T] [-target NAME] COMMAND [args]
//
// Commands:
//
//	state                  print session state
//	queue                  print retry-queue length
//	qr                     print the pending pairing challenge
//	send TO BODY...        send one text message
//	bulk FILE [DELAY_MS]   send a JSON file of {"to","body"} messages
//	connect                (re)start the session
//	disconnect             force-close the session
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

func main() {
	var (
		addrFlag    = flag.String("addr", "", "gateway base URL (overrides targets file)")
		tokenFlag   = flag.String("token", "", "bearer token (overrides targets file)")
		targetFlag  = flag.String("target", "", "named target from the targets file")
		targetsPath = flag.String("targets", defaultTargetsPath(), "path to targets.toml")
	)
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	addr, token := *addrFlag, *tokenFlag
	if addr == "" {
		file, err := loadTargets(*targetsPath)
		if err != nil {
			fatal(err)
		}
		target, err := resolveTarget(file, *targetFlag)
		if err != nil {
			fatal(err)
		}
		addr = target.Addr
		if token == "" {
			token = target.Token
		}
	}

	cli := &gatewayClient{
		base:  strings.TrimRight(addr, "/"),
		token: token,
		http:  &http.Client{Timeout: 5 * time.Minute},
	}

	if err := run(cli, args); err != nil {
		fatal(err)
	}
}

func run(cli *gatewayClient, args []string) error {
	switch args[0] {
	case "state":
		return cli.getJSON("/v1/session")
	case "queue":
		return cli.getJSON("/v1/queue")
	case "qr":
		return cli.getJSON("/v1/session/qr")
	case "connect":
		return cli.postJSON("/v1/session/connect", nil)
	case "disconnect":
		return cli.postJSON("/v1/session/disconnect", nil)
	case "send":
		if len(args) < 3 {
			return fmt.Errorf("usage: notifyctl send TO BODY...")
		}
		return cli.postJSON("/v1/messages", map[string]string{
			"to":   args[1],
			"body": strings.Join(args[2:], " "),
		})
	case "bulk":
		if len(args) < 2 {
			return fmt.Errorf("usage: notifyctl bulk FILE [DELAY_MS]")
		}
		return sendBulk(cli, args[1:])
	default:
		return fmt.Errorf("notifyctl: unknown command %q", args[0])
	}
}

func sendBulk(cli *gatewayClient, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	var messages []map[string]string
	if err := json.Unmarshal(data, &messages); err != nil {
		return fmt.Errorf("notifyctl: parse bulk file: %w", err)
	}
	payload := map[string]any{"messages": messages}
	if len(args) > 1 {
		delay, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("notifyctl: invalid delay %q: %w", args[1], err)
		}
		payload["delay_ms"] = delay
	}
	return cli.postJSON("/v1/messages/bulk", payload)
}

type gatewayClient struct {
	base  string
	token string
	http  *http.Client
}

func (g *gatewayClient) getJSON(path string) error {
	req, err := http.NewRequest(http.MethodGet, g.base+path, nil)
	if err != nil {
		return err
	}
	return g.do(req)
}

func (g *gatewayClient) postJSON(path string, payload any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(http.MethodPost, g.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return g.do(req)
}

func (g *gatewayClient) do(req *http.Request) error {
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}
	resp, err := g.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var indented bytes.Buffer
	if json.Indent(&indented, data, "", "  ") == nil {
		data = indented.Bytes()
	}
	fmt.Println(string(data))
	if resp.StatusCode >= 400 {
		return fmt.Errorf("notifyctl: gateway returned %s", resp.Status)
	}
	return nil
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
