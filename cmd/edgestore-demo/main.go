// Command edgestore-demo is a small CLI harness over pkg/edgestore: it
// opens an Instance rooted at a data directory and dispatches one
// key-value or stream operation per invocation.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/iamNilotpal/edgestore/pkg/edgestore"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "edgestore-demo:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	cmd, rest := args[0], args[1:]

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	dataDir := fs.String("data-dir", "./edgestore-data", "root directory for the key-value store and stream")
	key := fs.String("key", "", "key-value key")
	value := fs.String("value", "", "key-value value")
	payload := fs.String("payload", "", "stream record payload")
	seq := fs.Int64("seq", -1, "stream record sequence number")
	reader := fs.String("reader", "default", "named stream cursor")
	olderThan := fs.Int64("older-than-ms", 0, "remove_older_records cutoff, milliseconds since epoch")
	if err := fs.Parse(rest); err != nil {
		return err
	}

	ctx := context.Background()
	inst, err := edgestore.NewInstance(ctx, "edgestore-demo", edgestore.WithDataDir(*dataDir))
	if err != nil {
		return fmt.Errorf("open instance: %w", err)
	}
	defer inst.Close(ctx)

	switch cmd {
	case "set":
		return runSet(ctx, inst, *key, *value)
	case "get":
		return runGet(ctx, inst, *key)
	case "delete":
		return runDelete(ctx, inst, *key)
	case "keys":
		return runKeys(ctx, inst)
	case "append":
		return runAppend(ctx, inst, *payload)
	case "read":
		return runRead(ctx, inst, *seq)
	case "tail":
		return runTail(ctx, inst, *reader)
	case "checkpoint":
		return runCheckpoint(ctx, inst, *reader)
	case "gc":
		return runGC(ctx, inst, *olderThan)
	default:
		return usageError("unknown command: " + cmd)
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: edgestore-demo <set|get|delete|keys|append|read|tail|checkpoint|gc> [flags]", msg)
}

func runSet(ctx context.Context, inst *edgestore.Instance, key, value string) error {
	if key == "" {
		return usageError("--key is required")
	}
	if err := inst.Set(ctx, key, []byte(value)); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

func runGet(ctx context.Context, inst *edgestore.Instance, key string) error {
	if key == "" {
		return usageError("--key is required")
	}
	v, err := inst.Get(ctx, key)
	if err != nil {
		return err
	}
	fmt.Println(string(v))
	return nil
}

func runDelete(ctx context.Context, inst *edgestore.Instance, key string) error {
	if key == "" {
		return usageError("--key is required")
	}
	if err := inst.Delete(ctx, key); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

func runKeys(ctx context.Context, inst *edgestore.Instance) error {
	for _, k := range inst.Keys(ctx) {
		fmt.Println(k)
	}
	return nil
}

func runAppend(ctx context.Context, inst *edgestore.Instance, payload string) error {
	if payload == "" {
		return usageError("--payload is required")
	}
	seq, err := inst.Append(ctx, []byte(payload), nowMs())
	if err != nil {
		return err
	}
	fmt.Println(strconv.FormatUint(seq, 10))
	return nil
}

func runRead(ctx context.Context, inst *edgestore.Instance, seq int64) error {
	if seq < 0 {
		return usageError("--seq is required")
	}
	rec, err := inst.ReadRecord(ctx, uint64(seq))
	if err != nil {
		return err
	}
	fmt.Printf("%d\t%d\t%s\n", rec.SequenceNumber, rec.TimestampMs, rec.Payload)
	return nil
}

func runTail(ctx context.Context, inst *edgestore.Instance, reader string) error {
	cur := inst.Subscribe(ctx, reader)
	rec, err := cur.Get()
	if err != nil {
		return err
	}
	fmt.Printf("%d\t%d\t%s\n", rec.SequenceNumber, rec.TimestampMs, rec.Payload)
	return nil
}

func runCheckpoint(ctx context.Context, inst *edgestore.Instance, reader string) error {
	cur := inst.Subscribe(ctx, reader)
	rec, err := cur.Get()
	if err != nil {
		return err
	}
	if err := rec.Checkpoint(); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

func runGC(ctx context.Context, inst *edgestore.Instance, olderThanMs int64) error {
	reclaimed := inst.RemoveOlderRecords(ctx, olderThanMs)
	fmt.Println(reclaimed)
	return nil
}

func nowMs() int64 { return time.Now().UnixMilli() }
