// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	sendSocket  string
	sendTimeout int
)

var sendCmd = &cobra.Command{
	Use:   "send <command> [args...]",
	Short: "Send one command to a running controller",
	Long: `Send a single command line to the controller's command socket and print
the reply.

Examples:
  aquastat send status
  aquastat send setpoint spa 102F
  aquastat send heater spa on`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&sendSocket, "socket", "s", "", "Command socket path (default from config)")
	sendCmd.Flags().IntVar(&sendTimeout, "timeout", 5, "Timeout in seconds")
}

func runSend(cmd *cobra.Command, args []string) error {
	path := cfg.Socket
	if sendSocket != "" {
		path = sendSocket
	}

	reply, err := queryController(path, strings.Join(args, " "), time.Duration(sendTimeout)*time.Second)
	if err != nil {
		return err
	}
	fmt.Fprint(os.Stdout, reply)
	return nil
}

// queryController sends one line on a fresh connection and returns the whole
// reply. Closing the write side makes the server end the session after
// answering, which delimits multi-line replies.
func queryController(path, line string, timeout time.Duration) (string, error) {
	conn, err := net.DialTimeout("unix", path, timeout)
	if err != nil {
		return "", fmt.Errorf("failed to connect to controller at %s: %w", path, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(timeout))

	r := bufio.NewReader(conn)
	if _, err := r.ReadString('\n'); err != nil {
		return "", fmt.Errorf("no greeting from controller: %w", err)
	}

	if _, err := io.WriteString(conn, line+"\n"); err != nil {
		return "", fmt.Errorf("failed to send command: %w", err)
	}
	if uc, ok := conn.(*net.UnixConn); ok {
		uc.CloseWrite()
	}

	reply, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read reply: %w", err)
	}
	return string(reply), nil
}
