// lvlconv — утилита для файлов уровней: просмотр заголовка, перевод старого формата
// в текущий и генерация новых уровней.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/annel0/levelforge/internal/level"
	"github.com/annel0/levelforge/internal/logging"
	"github.com/annel0/levelforge/internal/lvlfile"
	"github.com/annel0/levelforge/internal/vec"
)

func usage() {
	fmt.Fprintln(os.Stderr, `Использование:
  lvlconv info <file.lvl>
  lvlconv convert <in.lvl> <out.lvl>
  lvlconv gen [-type flat|pixel|hell] [-x 64 -z 64 -y 64] [-seed N] <out.lvl>`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	// предупреждения кодека (неизвестные блоки и т.п.) — в stderr
	logging.SetDefault(logging.NewWriterLogger("lvlconv", os.Stderr, logging.WARN))

	var err error
	switch os.Args[1] {
	case "info":
		err = runInfo(os.Args[2:])
	case "convert":
		err = runConvert(os.Args[2:])
	case "gen":
		err = runGen(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func runInfo(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("info: нужен один файл")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	h, err := lvlfile.Info(f)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	fmt.Printf("format:  %s\n", h.Format)
	fmt.Printf("size:    %d x %d x %d (x, z, height)\n", h.Size.X, h.Size.Z, h.Size.Y)
	fmt.Printf("blocks:  %d\n", h.BlockCount)
	fmt.Printf("spawn:   %d %d %d rot %d/%d\n", h.SpawnPos.X, h.SpawnPos.Z, h.SpawnPos.Y, h.SpawnRot[0], h.SpawnRot[1])

	keys := make([]string, 0, len(h.Metadata))
	for k := range h.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("meta:    %s = %s\n", k, h.Metadata[k])
	}
	return nil
}

func runConvert(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("convert: нужны входной и выходной файлы")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	l, report, err := lvlfile.DecodeWithReport(data)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	l.Name = levelName(args[1])

	if err := writeLevel(args[1], l); err != nil {
		return err
	}
	fmt.Printf("✅ %s (%s) → %s, неизвестных блоков: %d\n", args[0], report.Format, args[1], report.Unmapped)
	return nil
}

func runGen(args []string) error {
	fs := flag.NewFlagSet("gen", flag.ContinueOnError)
	typeName := fs.String("type", "flat", "генератор: flat, pixel, hell")
	x := fs.Int("x", 64, "ширина")
	z := fs.Int("z", 64, "глубина")
	y := fs.Int("y", 64, "высота")
	seed := fs.Int64("seed", 0, "зерно генератора")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("gen: нужен выходной файл")
	}

	t, err := level.ParseType(*typeName)
	if err != nil {
		return err
	}
	out := fs.Arg(0)
	l, err := level.Generate(levelName(out), vec.New(*x, *z, *y), t, *seed)
	if err != nil {
		return err
	}

	if err := writeLevel(out, l); err != nil {
		return err
	}
	fmt.Printf("✅ %s: %s %dx%dx%d\n", out, t, *x, *z, *y)
	return nil
}

func levelName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func writeLevel(path string, l *level.Level) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := lvlfile.Encode(f, l); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
