// Package rename implements the rename subcommand: it reads a stylesheet,
// rewrites class names, ids and custom properties and writes the result out
// along with the conversion tables used.
package rename

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"cssren/config"
	"cssren/css"
	"cssren/state"
)

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("rename")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	src, err = filepath.Abs(src)
	if err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		dst = deriveDestination(src)
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	env.Overwrite = cmd.Bool("overwrite")
	if !env.Overwrite {
		if _, err := os.Stat(dst); err == nil {
			return fmt.Errorf("destination '%s' already exists, use --overwrite to replace it", dst)
		}
	}

	opts, err := buildOptions(cmd, env, log)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("unable to read source stylesheet '%s': %w", src, err)
	}
	opts.CSS = data
	env.Rpt.StoreData("input/"+filepath.Base(src), data)

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	res, err := css.Transform(opts)
	if err != nil {
		return fmt.Errorf("unable to transform stylesheet: %w", err)
	}

	if err := os.WriteFile(dst, res.CSS, 0644); err != nil {
		return fmt.Errorf("unable to write destination '%s': %w", dst, err)
	}
	env.Rpt.Store("output/"+filepath.Base(dst), dst)

	tables, err := res.Tables.Marshal()
	if err != nil {
		return fmt.Errorf("unable to serialize conversion tables: %w", err)
	}
	env.Rpt.StoreData("tables.json", tables)

	if save := savePath(cmd, env.Cfg); len(save) > 0 {
		if err := os.WriteFile(save, tables, 0644); err != nil {
			return fmt.Errorf("unable to save conversion tables '%s': %w", save, err)
		}
		log.Info("Conversion tables saved", zap.String("file", save),
			zap.Int("selectors", len(res.Tables.Selectors)), zap.Int("idents", len(res.Tables.Idents)))
	}
	return nil
}

// buildOptions merges configuration values with command line overrides.
func buildOptions(cmd *cli.Command, env *state.LocalEnv, log *zap.Logger) (css.Options, error) {
	conf := env.Cfg.Rename

	modeName := conf.Mode
	if cmd.IsSet("mode") {
		modeName = cmd.String("mode")
	}
	mode, err := css.ParseMode(modeName)
	if err != nil {
		return css.Options{}, err
	}

	opts := css.Options{
		Mode:        mode,
		DebugSymbol: conf.DebugSymbol,
		Prefix: css.AffixOption{
			All:       conf.Prefix.All,
			Selectors: conf.Prefix.Selectors,
			Idents:    conf.Prefix.Idents,
		},
		Suffix: css.AffixOption{
			All:       conf.Suffix.All,
			Selectors: conf.Suffix.Selectors,
			Idents:    conf.Suffix.Idents,
		},
		Seed: conf.Seed,
		Ignore: css.IgnoreOption{
			All:       conf.Ignore.All,
			Selectors: conf.Ignore.Selectors,
			Idents:    conf.Ignore.Idents,
		},
		Minify: conf.Minify,
		Log:    log,
	}
	if cmd.IsSet("prefix") {
		opts.Prefix.All = cmd.String("prefix")
	}
	if cmd.IsSet("suffix") {
		opts.Suffix.All = cmd.String("suffix")
	}
	if cmd.IsSet("seed") {
		opts.Seed = cmd.String("seed")
	}
	if cmd.IsSet("minify") {
		opts.Minify = cmd.Bool("minify")
	}
	if patterns := cmd.StringSlice("ignore"); len(patterns) > 0 {
		opts.Ignore.All = append(opts.Ignore.All, patterns...)
	}

	// prior tables must be loaded before anything is rewritten, a broken
	// file aborts the run rather than silently producing a fresh mapping
	tablesPath := conf.TablesPath
	if cmd.IsSet("tables") {
		tablesPath = cmd.String("tables")
	}
	if len(tablesPath) > 0 {
		data, err := os.ReadFile(tablesPath)
		if err != nil {
			return css.Options{}, fmt.Errorf("unable to read conversion tables '%s': %w", tablesPath, err)
		}
		if opts.Tables, err = css.UnmarshalTables(data); err != nil {
			return css.Options{}, fmt.Errorf("unable to load conversion tables '%s': %w", tablesPath, err)
		}
		log.Debug("Loaded prior conversion tables", zap.String("file", tablesPath),
			zap.Int("selectors", len(opts.Tables.Selectors)), zap.Int("idents", len(opts.Tables.Idents)))
	}
	return opts, nil
}

func savePath(cmd *cli.Command, cfg *config.Config) string {
	if cmd.IsSet("save-tables") {
		return cmd.String("save-tables")
	}
	if cmd.IsSet("tables") && cmd.Bool("update-tables") {
		return cmd.String("tables")
	}
	if cfg.Rename.TablesPath != "" && cmd.Bool("update-tables") {
		return cfg.Rename.TablesPath
	}
	return ""
}

// deriveDestination builds an output name next to the source when no
// explicit destination was given.
func deriveDestination(src string) string {
	dir, base := filepath.Split(src)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	if len(ext) == 0 {
		ext = ".css"
	}
	return filepath.Join(dir, config.CleanFileName(name+".out"+ext))
}
