// myssh 命令行：管理服务器配置、连接与远程操作，serve 子命令启动 Web API
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	clierrors "myssh/internal/errors"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	err := newRootCmd(a).ExecuteContext(ctx)
	if cerr := a.close(context.Background()); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return handleError(err)
	}
	return clierrors.ExitSuccess
}

// handleError 输出错误与提示，返回退出码
func handleError(err error) int {
	var cliErr *clierrors.CLIError
	if clierrors.As(err, &cliErr) {
		failure("%s", cliErr.Error())
		if cliErr.Hint != "" {
			info("%s", cliErr.Hint)
		}
		return cliErr.Code
	}
	msg := err.Error()
	if strings.HasPrefix(msg, "unknown command") || strings.HasPrefix(msg, "unknown flag") ||
		strings.HasPrefix(msg, "unknown shorthand flag") || strings.Contains(msg, "required flag") {
		failure("%s", msg)
		info("运行 'myssh --help' 查看用法")
		return clierrors.ExitUsage
	}
	failure("%s", msg)
	return clierrors.ExitGeneral
}

func newRootCmd(a *app) *cobra.Command {
	var noColor bool

	root := &cobra.Command{
		Use:   "myssh",
		Short: "多服务器 SSH 会话管理",
		Long: `myssh 管理多台 SSH 服务器：保存配置、建立连接、文件传输、远程命令与系统监控。

常用命令：
  myssh servers list         查看服务器
  myssh servers add          添加服务器
  myssh connect <id>         打开交互式终端
  myssh upload <id> ...      批量上传
  myssh serve                启动 Web API`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				color.NoColor = true
			}
			return a.init(cmd)
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return clierrors.Usage(err.Error())
	})

	f := root.PersistentFlags()
	f.StringVar(&a.configFile, "config", "", "配置文件路径（默认 <UserConfigDir>/myssh/config.yaml）")
	f.String("data-dir", "", "数据目录，保存 servers.json、access.log 与主密码")
	f.String("log-level", "", "日志级别 (error|warn|info|debug)")
	f.String("log-format", "", "日志格式 (console|json)")
	f.String("log-file", "", "额外写入的日志文件")
	f.BoolVar(&noColor, "no-color", false, "关闭彩色输出")

	root.AddCommand(
		newServeCmd(a),
		newServersCmd(a),
		newConnectCmd(a),
		newExecCmd(a),
		newLsCmd(a),
		newUploadCmd(a),
		newDownloadCmd(a),
		newMonitorCmd(a),
		newAskCmd(a),
		newExportCmd(a),
		newImportCmd(a),
	)
	return root
}

var (
	okColor   = color.New(color.FgGreen)
	failColor = color.New(color.FgRed, color.Bold)
	infoColor = color.New(color.FgCyan)
	dimColor  = color.New(color.Faint)
)

func success(format string, args ...any) {
	okColor.Fprintf(os.Stdout, "✓ "+format+"\n", args...)
}

func failure(format string, args ...any) {
	failColor.Fprintf(os.Stderr, "✗ "+format+"\n", args...)
}

func info(format string, args ...any) {
	infoColor.Fprintf(os.Stderr, format+"\n", args...)
}

func dim(s string) string {
	return dimColor.Sprint(s)
}

func printf(format string, args ...any) {
	fmt.Fprintf(os.Stdout, format, args...)
}
