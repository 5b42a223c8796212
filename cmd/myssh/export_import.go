package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	clierrors "myssh/internal/errors"
	"myssh/internal/server"
)

// formatFor 未指定格式时按扩展名判断
func formatFor(format, file string) string {
	if format != "" {
		return strings.ToLower(format)
	}
	switch strings.ToLower(filepath.Ext(file)) {
	case ".yaml", ".yml":
		return server.FormatYAML
	case ".toml":
		return server.FormatTOML
	default:
		return server.FormatJSON
	}
}

func newExportCmd(a *app) *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "导出全部服务器配置（含密码），用于备份或迁移",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			data, err := server.Marshal(server.ExportConfig(orch.List()), formatFor(format, out))
			if err != nil {
				return clierrors.Usage(err.Error())
			}
			if out == "" || out == "-" {
				_, err = os.Stdout.Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o600); err != nil {
				return clierrors.Wrap(clierrors.ExitGeneral, "写入导出文件失败", err)
			}
			success("已导出到 %s", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "json、yaml 或 toml（默认按输出文件扩展名）")
	cmd.Flags().StringVarP(&out, "output", "o", "", "输出文件，默认标准输出")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var format string
	var replace bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "导入服务器配置：默认按 id 合并，--replace 时替换全部",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return clierrors.Wrap(clierrors.ExitGeneral, "读取导入文件失败", err)
			}
			req, err := server.Unmarshal(data, formatFor(format, args[0]))
			if err != nil {
				return clierrors.ConfigInvalid(err)
			}
			orch, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			res, err := server.Import(cmd.Context(), orch, req.Servers, replace || req.Replace)
			if err != nil {
				return clierrors.FromSession("", err)
			}
			success("导入完成：新增 %d，更新 %d，删除 %d，共 %d 台", res.Added, res.Updated, res.Removed, res.Total)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "json、yaml 或 toml（默认按文件扩展名）")
	cmd.Flags().BoolVar(&replace, "replace", false, "替换全部现有服务器")
	return cmd
}
