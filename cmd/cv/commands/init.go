package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a ContextVault working directory",
	Long:  `Create an empty ContextVault working directory or reinitialize an existing one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 获取当前路径
		wd, err := os.Getwd()
		if err != nil {
			return err
		}

		// 2. 定义工作目录路径 (.cv)
		repoPath := filepath.Join(wd, ".cv")
		objectsPath := filepath.Join(repoPath, "objects")

		// 3. 检查是否已存在
		if _, err := os.Stat(repoPath); err == nil {
			fmt.Printf("⚠️  ContextVault working directory already exists in %s\n", repoPath)
			return nil
		}

		// 4. 创建目录结构
		// .cv/objects 存 blob 字节，.cv/meta.db 存元数据索引
		if err := os.MkdirAll(objectsPath, 0755); err != nil {
			return fmt.Errorf("failed to create working directory: %w", err)
		}

		fmt.Printf("✅ Initialized empty ContextVault working directory in %s\n", repoPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
