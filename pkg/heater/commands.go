// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package heater

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Thermoquad/aquastat/pkg/jxi"
)

// ErrUnknownCommand is returned for command lines with an unknown verb
var ErrUnknownCommand = errors.New("unknown command")

// handler runs one command with the words following the verb
type handler func(ctx context.Context, c *Controller, args []string) (string, error)

// commandOrder is the order commands are listed in by help
var commandOrder = []string{"setpoint", "heater", "status", "stats", "help"}

var commands map[string]handler

func init() {
	commands = map[string]handler{
		"setpoint": cmdSetpoint,
		"heater":   cmdHeater,
		"status":   cmdStatus,
		"stats":    cmdStats,
		"help":     cmdHelp,
	}
}

// Exec runs one text command line and returns the reply. Replies end with a
// newline. Blank lines return an empty reply.
func (c *Controller) Exec(ctx context.Context, line string) (string, error) {
	words := strings.Fields(line)
	if len(words) == 0 {
		return "", nil
	}

	h, ok := commands[words[0]]
	if !ok {
		return "", fmt.Errorf("%w %s", ErrUnknownCommand, words[0])
	}
	return h(ctx, c, words[1:])
}

func parseMode(s string) (jxi.Mode, bool) {
	switch s {
	case "pool":
		return jxi.ModePool, true
	case "spa":
		return jxi.ModeSpa, true
	default:
		return jxi.ModeNone, false
	}
}

func cmdSetpoint(ctx context.Context, c *Controller, args []string) (string, error) {
	if len(args) != 2 {
		return "", errors.New(`use "setpoint pool|spa <temp>F|C"`)
	}
	mode, ok := parseMode(args[0])
	if !ok {
		return "", errors.New(`use "pool" or "spa" + temp`)
	}
	celsius, err := jxi.ParseTemperature(args[1])
	if err != nil {
		return "", err
	}
	if err := c.SetSetpoint(ctx, mode, celsius); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s setpoint %d°C\n", mode, celsius), nil
}

// parseHeater validates every word before anything is applied. Later words
// override earlier ones for the same setting.
func parseHeater(args []string) (jxi.Mode, Power, error) {
	if len(args) == 0 {
		return jxi.ModeNone, PowerUnchanged, errors.New(`use "heater pool|spa|on|off..."`)
	}

	mode, power := jxi.ModeNone, PowerUnchanged
	for _, word := range args {
		if m, ok := parseMode(word); ok {
			mode = m
			continue
		}
		switch word {
		case "on":
			power = PowerOn
		case "off":
			power = PowerOff
		default:
			return jxi.ModeNone, PowerUnchanged, fmt.Errorf("unknown parameter %s", word)
		}
	}
	return mode, power, nil
}

func cmdHeater(ctx context.Context, c *Controller, args []string) (string, error) {
	mode, power, err := parseHeater(args)
	if err != nil {
		return "", err
	}
	if err := c.SetHeater(ctx, mode, power); err != nil {
		return "", err
	}

	if power == PowerOn {
		return fmt.Sprintf("Starting heater. Timeout in %.0f sec. Re-send \"on\" command periodically to reset timeout.\n",
			c.cfg.KeepaliveWindow.Seconds()), nil
	}
	return "ok\n", nil
}

func cmdStatus(ctx context.Context, c *Controller, _ []string) (string, error) {
	return c.Status(ctx)
}

func cmdStats(ctx context.Context, c *Controller, _ []string) (string, error) {
	return c.Stats(ctx)
}

func cmdHelp(context.Context, *Controller, []string) (string, error) {
	return "commands: " + strings.Join(commandOrder, " ") + "\n", nil
}
