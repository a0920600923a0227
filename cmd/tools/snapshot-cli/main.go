package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/annel0/voxel-builder/internal/config"
	"github.com/annel0/voxel-builder/internal/logging"
	"github.com/annel0/voxel-builder/internal/snapshot"
	"github.com/annel0/voxel-builder/internal/storage"
	"github.com/annel0/voxel-builder/internal/storage_adapter"
	"github.com/annel0/voxel-builder/internal/world/block"
)

func main() {
	var (
		command    = flag.String("cmd", "stats", "Command: stats, validate, convert, slots, export, import")
		in         = flag.String("in", "", "Input snapshot file (.vox.json or .vox.zst)")
		out        = flag.String("out", "", "Output snapshot file; .zst suffix enables compression")
		slot       = flag.String("slot", "", "Slot name for export/import")
		configPath = flag.String("config", "", "Editor config for slot commands (default $EDITOR_CONFIG)")
		asJSON     = flag.Bool("json", false, "Print stats as JSON")
		timeout    = flag.Duration("timeout", 10*time.Second, "Storage operation timeout")
	)
	flag.Parse()

	logging.SetLogDir("")

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var err error
	switch *command {
	case "stats":
		err = showStats(*in, *asJSON)
	case "validate":
		err = validate(*in)
	case "convert":
		err = convert(*in, *out)
	case "slots":
		err = withSaves(ctx, *configPath, func(m *storage.SaveManager) error {
			return listSlots(ctx, m)
		})
	case "export":
		err = withSaves(ctx, *configPath, func(m *storage.SaveManager) error {
			return exportSlot(ctx, m, *slot, *out)
		})
	case "import":
		err = withSaves(ctx, *configPath, func(m *storage.SaveManager) error {
			return importSlot(ctx, m, *slot, *in)
		})
	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		fmt.Println("Available commands: stats, validate, convert, slots, export, import")
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("❌ %s failed: %v", *command, err)
	}
}

func requireFlag(name, value string) error {
	if value == "" {
		return fmt.Errorf("flag -%s is required", name)
	}
	return nil
}

// showStats печатает сводку по файлу снимка
func showStats(path string, asJSON bool) error {
	if err := requireFlag("in", path); err != nil {
		return err
	}
	snap, err := storage_adapter.ReadSnapshotFile(path)
	if err != nil {
		return err
	}
	sum := snapshot.Summarize(snap)

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	}

	fmt.Printf("📦 %s\n", path)
	fmt.Printf("   Blocks: %d\n", sum.Blocks)
	if sum.Min != nil {
		fmt.Printf("   Bounds: %v .. %v\n", *sum.Min, *sum.Max)
	}

	fmt.Println("   By material:")
	types := make([]block.Type, 0, len(sum.ByType))
	for t := range sum.ByType {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	for _, t := range types {
		fmt.Printf("     %-12s %d\n", t, sum.ByType[t])
	}

	fmt.Println("   By shape:")
	variants := make([]block.Variant, 0, len(sum.ByVariant))
	for v := range sum.ByVariant {
		variants = append(variants, v)
	}
	sort.Slice(variants, func(i, j int) bool { return variants[i] < variants[j] })
	for _, v := range variants {
		fmt.Printf("     %-12s %d\n", v, sum.ByVariant[v])
	}
	return nil
}

func validate(path string) error {
	if err := requireFlag("in", path); err != nil {
		return err
	}
	snap, err := storage_adapter.ReadSnapshotFile(path)
	if err != nil {
		return err
	}
	fmt.Printf("✅ %s: valid, %d blocks\n", path, len(snap.Blocks))
	return nil
}

// convert перекодирует снимок; формат выхода определяется расширением
func convert(in, out string) error {
	if err := requireFlag("in", in); err != nil {
		return err
	}
	if err := requireFlag("out", out); err != nil {
		return err
	}
	snap, err := storage_adapter.ReadSnapshotFile(in)
	if err != nil {
		return err
	}
	n, err := storage_adapter.WriteSnapshotFile(out, snap)
	if err != nil {
		return err
	}
	fmt.Printf("✅ %s → %s (%d bytes)\n", in, out, n)
	return nil
}

// withSaves открывает хранилище слотов из конфигурации редактора
func withSaves(ctx context.Context, configPath string, fn func(*storage.SaveManager) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	m, err := storage_adapter.NewSaveManager(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer m.Store().Close()
	return fn(m)
}

func listSlots(ctx context.Context, m *storage.SaveManager) error {
	slots, err := m.ListSlots(ctx)
	if err != nil {
		return err
	}
	if len(slots) == 0 {
		fmt.Println("No slots")
		return nil
	}
	for _, s := range slots {
		fmt.Printf("%-24s %6d blocks  %8d bytes  compressed=%-5v  %s\n",
			s.Name, s.Blocks, s.Size, s.Compressed, s.SavedAt.Format(time.RFC3339))
	}
	return nil
}

func exportSlot(ctx context.Context, m *storage.SaveManager, name, out string) error {
	if err := requireFlag("slot", name); err != nil {
		return err
	}
	if err := requireFlag("out", out); err != nil {
		return err
	}
	snap, _, err := m.ReadSlot(ctx, name)
	if err != nil {
		return err
	}
	n, err := storage_adapter.WriteSnapshotFile(out, snap)
	if err != nil {
		return err
	}
	fmt.Printf("✅ slot %s → %s (%d blocks, %d bytes)\n", name, out, len(snap.Blocks), n)
	return nil
}

func importSlot(ctx context.Context, m *storage.SaveManager, name, in string) error {
	if err := requireFlag("slot", name); err != nil {
		return err
	}
	if err := requireFlag("in", in); err != nil {
		return err
	}
	snap, err := storage_adapter.ReadSnapshotFile(in)
	if err != nil {
		return err
	}
	info, err := m.SaveSlot(ctx, name, snap)
	if err != nil {
		return err
	}
	fmt.Printf("✅ %s → slot %s (%d blocks)\n", in, info.Name, info.Blocks)
	return nil
}
