package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	clierrors "myssh/internal/errors"
	"myssh/internal/models"
	"myssh/internal/session"
	"myssh/internal/ssh"
)

func newConnectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "connect <id>",
		Short: "连接服务器并打开交互式终端",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			orch, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			srv, err := orch.Get(id)
			if err != nil {
				return clierrors.FromSession(id, err)
			}
			title := showServerBanner(srv)
			if _, err := a.connect(cmd.Context(), id); err != nil {
				return err
			}
			if err := a.backend.Shell(id, ssh.ShellOptions{WindowTitle: title}); err != nil {
				return clierrors.Wrap(clierrors.ExitNetwork, "终端会话异常结束", err)
			}
			return nil
		},
	}
}

// showServerBanner 打印服务器标识并设置终端窗口标题，返回标题
func showServerBanner(s session.Server) string {
	addr := fmt.Sprintf("%s@%s:%d", s.Username, s.Host, s.Port)
	title := fmt.Sprintf("SSH: %s (%s)", s.Name, addr)
	fmt.Print("\033]0;", title, "\007")
	fmt.Print("\033]2;", title, "\007")
	printf("\n  ═══ %s ═══\n  主机: %s  |  用户: %s  |  端口: %d\n  %s\n\n",
		s.Name, s.Host, s.Username, s.Port, dim(addr))
	return title
}

func newExecCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "exec <id> -- <command>...",
		Short: "在远程服务器上执行命令",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, command := args[0], strings.Join(args[1:], " ")
			orch, err := a.connect(cmd.Context(), id)
			if err != nil {
				return err
			}
			res, err := orch.Files(id).Execute(cmd.Context(), command)
			if err != nil {
				return clierrors.FromSession(id, err)
			}
			if asJSON {
				return json.NewEncoder(os.Stdout).Encode(res)
			}
			fmt.Fprint(os.Stdout, res.Output)
			if res.ExitCode != 0 {
				return &clierrors.CLIError{
					Message: fmt.Sprintf("远程命令退出码 %d", res.ExitCode),
					Code:    res.ExitCode,
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "以 JSON 输出结果")
	return cmd
}

func newLsCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "ls <id> [path]",
		Short: "列出远程目录，目录在前",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, dir := args[0], "."
			if len(args) == 2 {
				dir = args[1]
			}
			orch, err := a.connect(cmd.Context(), id)
			if err != nil {
				return err
			}
			entries, err := orch.Files(id).ListDirectory(cmd.Context(), dir)
			if err != nil {
				return clierrors.FromSession(id, err)
			}
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, e := range entries {
				name := e.Name
				if e.Type == models.FileTypeDirectory {
					name = infoColor.Sprint(name + "/")
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", e.Mode, e.Size, e.Modified, name)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "以 JSON 输出")
	return cmd
}

func newMonitorCmd(a *app) *cobra.Command {
	var (
		asJSON   bool
		interval time.Duration
		count    int
	)
	cmd := &cobra.Command{
		Use:   "monitor <id>",
		Short: "周期采样 CPU、内存、磁盘与网络",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			orch, err := a.connect(cmd.Context(), id)
			if err != nil {
				return err
			}
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for n := 0; count <= 0 || n < count; n++ {
				if n > 0 {
					select {
					case <-cmd.Context().Done():
						return nil
					case <-ticker.C:
					}
				}
				sample, err := orch.Files(id).MonitorSample(cmd.Context())
				if err != nil {
					return clierrors.FromSession(id, err)
				}
				if asJSON {
					if err := json.NewEncoder(os.Stdout).Encode(sample); err != nil {
						return err
					}
					continue
				}
				printSample(sample)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVar(&asJSON, "json", false, "每次采样输出一行 JSON")
	f.DurationVar(&interval, "interval", 2*time.Second, "采样间隔")
	f.IntVarP(&count, "count", "n", 1, "采样次数，0 表示持续采样直到中断")
	return cmd
}

func printSample(s *models.MonitorSample) {
	printf("%s  %.1f%%  %d 核  %.0f MHz  load %s\n", infoColor.Sprint("CPU"), s.CPU.Usage, s.CPU.Cores, s.CPU.Frequency, s.CPU.LoadAverage)
	printf("%s  %s / %s  可用 %s\n", infoColor.Sprint("MEM"), formatBytes(s.Memory.Used), formatBytes(s.Memory.Total), formatBytes(s.Memory.Available))
	for _, d := range s.Disk {
		printf("%s  %-20s %s / %s  %.1f%%\n", infoColor.Sprint("DSK"), d.Mount, formatBytes(d.Used), formatBytes(d.Total), d.Usage)
	}
	printf("%s  ↓ %s/s  ↑ %s/s\n\n", infoColor.Sprint("NET"), formatBytes(s.Network.Download), formatBytes(s.Network.Upload))
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func newAskCmd(a *app) *cobra.Command {
	var actions bool
	cmd := &cobra.Command{
		Use:   "ask <id> [question]...",
		Short: "向 AI 助手询问该服务器的运维问题",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			orch, err := a.connect(cmd.Context(), id)
			if err != nil {
				return err
			}
			r := orch.Files(id)
			if actions {
				list, err := r.AIQuickActions(cmd.Context())
				if err != nil {
					return clierrors.FromSession(id, err)
				}
				for _, q := range list {
					printf("%s  %s\n    %s\n", infoColor.Sprint(q.Title), dim(q.Description), q.Action)
				}
				return nil
			}
			if len(args) < 2 {
				return clierrors.Usage("请输入问题，或使用 --actions 查看快速操作")
			}
			reply, err := r.AIChat(cmd.Context(), strings.Join(args[1:], " "), nil)
			if err != nil {
				return clierrors.FromSession(id, err)
			}
			printf("%s\n", reply.Content)
			return nil
		},
	}
	cmd.Flags().BoolVar(&actions, "actions", false, "列出快速操作")
	return cmd
}
