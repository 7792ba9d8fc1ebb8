// Command objstore is a small CLI around the objstore package: a single
// os.Args-driven subcommand switch, no flag-parsing framework.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/KarpelesLab/objstore"
)

const usage = `objstore - single-file object store CLI

Usage:
  objstore ls <store_file>                    List live OIDs
  objstore get <store_file> <oid> <out_file>  Write an object's payload to out_file
  objstore put <store_file> <oid> <in_file>   Write in_file's contents to oid
  objstore rm <store_file> <oid>               Delete an object
  objstore help                                Show this help message
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "ls":
		err = requireArgs(3, func() error { return runList(os.Args[2]) })
	case "get":
		err = requireArgs(5, func() error { return runGet(os.Args[2], os.Args[3], os.Args[4]) })
	case "put":
		err = requireArgs(5, func() error { return runPut(os.Args[2], os.Args[3], os.Args[4]) })
	case "rm":
		err = requireArgs(4, func() error { return runRemove(os.Args[2], os.Args[3]) })
	case "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", os.Args[1])
		fmt.Print(usage)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func requireArgs(n int, fn func() error) error {
	if len(os.Args) < n {
		fmt.Print(usage)
		os.Exit(1)
	}
	return fn()
}

func runList(path string) error {
	s, err := objstore.Open(path, objstore.WithReadOnly())
	if err != nil {
		return err
	}
	defer s.Close()

	for _, oid := range s.OIDs() {
		data, ok, err := s.Read(oid)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		fmt.Printf("%20d %8d bytes\n", oid, len(data))
	}
	return nil
}

func runGet(path, oidStr, outPath string) error {
	oid, err := strconv.ParseInt(oidStr, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid oid %q: %w", oidStr, err)
	}

	s, err := objstore.Open(path, objstore.WithReadOnly())
	if err != nil {
		return err
	}
	defer s.Close()

	data, ok, err := s.Read(oid)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("oid %d not found", oid)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = out.Write(data)
	return err
}

func runPut(path, oidStr, inPath string) error {
	oid, err := strconv.ParseInt(oidStr, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid oid %q: %w", oidStr, err)
	}

	in, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer in.Close()
	data, err := io.ReadAll(in)
	if err != nil {
		return err
	}

	s, err := objstore.Open(path)
	if err != nil {
		return err
	}
	if err := s.Write(oid, data); err != nil {
		s.Close()
		return err
	}
	return s.Close()
}

func runRemove(path, oidStr string) error {
	oid, err := strconv.ParseInt(oidStr, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid oid %q: %w", oidStr, err)
	}

	s, err := objstore.Open(path)
	if err != nil {
		return err
	}
	if _, _, err := s.Delete(oid); err != nil {
		s.Close()
		return err
	}
	return s.Close()
}
