package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/justapithecus/contribuart/types"
)

// cellFlags select the cells and target repository of a paint.
func cellFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "owner",
			Usage:    "Repository owner",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "repo",
			Usage:    "Repository name",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "cells",
			Usage: "Cells file (JSON or YAML list), - for stdin",
		},
		&cli.StringSliceFlag{
			Name:  "cell",
			Usage: "Cell as date:intensity[:existing] (repeatable)",
		},
		&cli.BoolFlag{
			Name:  "incremental",
			Usage: "Advance the branch after every painted cell",
		},
	}
}

// paintRequestFromFlags assembles a request from --cells and --cell. File
// cells come first, then flag cells, each in the order given.
func paintRequestFromFlags(c *cli.Context, stdin io.Reader) (*types.PaintRequest, error) {
	req := &types.PaintRequest{
		Owner:       c.String("owner"),
		Repo:        c.String("repo"),
		Incremental: c.Bool("incremental"),
	}

	if path := c.String("cells"); path != "" {
		cells, err := readCells(path, stdin)
		if err != nil {
			return nil, err
		}
		req.Cells = append(req.Cells, cells...)
	}
	for _, raw := range c.StringSlice("cell") {
		cell, err := parseCellFlag(raw)
		if err != nil {
			return nil, err
		}
		req.Cells = append(req.Cells, cell)
	}
	if len(req.Cells) == 0 {
		return nil, fmt.Errorf("no cells given (use --cells or --cell)")
	}
	return req, nil
}

// parseCellFlag parses date:intensity[:existing].
func parseCellFlag(s string) (types.PaintCell, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return types.PaintCell{}, fmt.Errorf("invalid cell %q (want date:intensity[:existing])", s)
	}

	cell := types.PaintCell{Date: parts[0]}
	intensity, err := strconv.Atoi(parts[1])
	if err != nil {
		return types.PaintCell{}, fmt.Errorf("invalid cell %q: intensity: %w", s, err)
	}
	cell.Intensity = intensity

	if len(parts) == 3 {
		existing, err := strconv.Atoi(parts[2])
		if err != nil {
			return types.PaintCell{}, fmt.Errorf("invalid cell %q: existing count: %w", s, err)
		}
		cell.ExistingCount = existing
	}
	return cell, nil
}

// readCells reads a list of cells. Input starting with '[' is JSON with the
// wire field names; anything else is YAML.
func readCells(path string, stdin io.Reader) ([]types.PaintCell, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read cells: %w", err)
	}

	var cells []types.PaintCell
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &cells)
	} else {
		err = yaml.Unmarshal(data, &cells)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid cells in %s: %w", path, err)
	}
	return cells, nil
}
