// cmd/cv/commands/bundle.go

package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"contextvault/pkg/assim"
	"contextvault/pkg/ignore"
	"contextvault/pkg/types"

	"github.com/spf13/cobra"
)

var (
	bundleManifest string
	bundleContext  string
	bundleFormat   string
	bundleOffset   int64
	bundleSize     int64
)

var bundleCmd = &cobra.Command{
	Use:   "bundle [paths...]",
	Short: "Submit a batch of sources for assimilation",
	Long: `Validate and submit assimilation descriptors as one all-or-nothing batch.

Sources come either from a JSON manifest (--manifest) or from file/directory
arguments plus --context. Directories are expanded recursively; entries matched
by .cvignore (and the built-in rules) are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if CV == nil {
			return fmt.Errorf("app not initialized")
		}
		ctx := context.Background()
		start := time.Now()

		// 1. 收集描述符：manifest 和命令行参数二选一
		var raws []assim.Raw
		var err error
		if bundleManifest != "" {
			raws, err = loadManifest(bundleManifest)
		} else {
			if bundleContext == "" {
				return fmt.Errorf("--context is required when no manifest is given")
			}
			raws, err = expandPaths(args, bundleContext)
		}
		if err != nil {
			return err
		}

		// 2. 整批提交 (All-or-Nothing，校验失败不会碰存储)
		report, err := CV.Explorer.Bundle(ctx, raws)
		if err != nil {
			return fmt.Errorf("bundle failed: %w", err)
		}

		fmt.Printf("✅ Submitted %d request(s) in %s\n", report.Submitted, time.Since(start))
		return nil
	},
}

// loadManifest 读取 JSON 清单文件
// 格式：[{"src": "file::/data/a.bin", "dst": "iowarp::t1", ...}, ...]
func loadManifest(path string) ([]assim.Raw, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var raws []assim.Raw
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return raws, nil
}

// expandPaths 把文件/目录参数展开成描述符列表
// 目录递归遍历，.cvignore 规则生效；byte range 参数只对单文件有意义。
func expandPaths(paths []string, contextName string) ([]assim.Raw, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no source paths given")
	}

	dst := types.SchemeIOWarp + "::" + contextName
	var raws []assim.Raw

	for _, target := range paths {
		info, err := os.Stat(target)
		if err != nil {
			return nil, fmt.Errorf("cannot stat %s: %w", target, err)
		}

		if !info.IsDir() {
			abs, err := filepath.Abs(target)
			if err != nil {
				return nil, err
			}
			raws = append(raws, assim.Raw{
				Src:       types.SchemeFile + "::" + abs,
				Dst:       dst,
				Format:    bundleFormat,
				RangeOff:  bundleOffset,
				RangeSize: bundleSize,
			})
			continue
		}

		// 目录展开：byte range 对整个目录没有意义
		if bundleOffset != 0 || bundleSize != 0 {
			return nil, fmt.Errorf("--offset/--size cannot be used with a directory: %s", target)
		}

		matcher, err := ignore.NewMatcher(target)
		if err != nil {
			return nil, fmt.Errorf("failed to load ignore rules: %w", err)
		}

		walkFn := func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err // 权限错误等
			}

			rel, err := filepath.Rel(target, path)
			if err != nil {
				return err
			}
			if rel == "." {
				return nil
			}

			// 忽略规则对目录生效时整棵子树跳过
			if matcher.Matches(rel) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}

			abs, err := filepath.Abs(path)
			if err != nil {
				return err
			}
			raws = append(raws, assim.Raw{
				Src:    types.SchemeFile + "::" + abs,
				Dst:    dst,
				Format: bundleFormat,
			})
			return nil
		}

		if err := filepath.WalkDir(target, walkFn); err != nil {
			return nil, fmt.Errorf("walk failed: %w", err)
		}
	}

	if len(raws) == 0 {
		return nil, fmt.Errorf("nothing to bundle (everything ignored?)")
	}
	return raws, nil
}

func init() {
	bundleCmd.Flags().StringVar(&bundleManifest, "manifest", "", "JSON manifest of assimilation descriptors")
	bundleCmd.Flags().StringVar(&bundleContext, "context", "", "Destination context name")
	bundleCmd.Flags().StringVar(&bundleFormat, "format", "", "Data format hint (default: binary)")
	bundleCmd.Flags().Int64Var(&bundleOffset, "offset", 0, "Byte offset into the source")
	bundleCmd.Flags().Int64Var(&bundleSize, "size", 0, "Byte count to read (0 = to end)")
	rootCmd.AddCommand(bundleCmd)
}
