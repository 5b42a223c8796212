package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	clierrors "myssh/internal/errors"
	"myssh/internal/gateway"
	"myssh/internal/server"
)

func newServersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "servers",
		Aliases: []string{"server", "s"},
		Short:   "管理服务器配置",
	}
	cmd.AddCommand(
		newServersListCmd(a),
		newServersAddCmd(a),
		newServersUpdateCmd(a),
		newServersRmCmd(a),
	)
	return cmd
}

func newServersListCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "按分组列出服务器（不显示密码）",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			groups := server.GroupServers(orch.List())
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(groups)
			}
			if len(groups) == 0 {
				info("还没有服务器，使用 'myssh servers add' 添加")
				return nil
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, g := range groups {
				fmt.Fprintf(tw, "%s\n", infoColor.Sprint("["+g.Name+"]"))
				for _, s := range g.Servers {
					auth := "key"
					if s.KeyPath == "" {
						auth = "password"
					}
					fmt.Fprintf(tw, "  %s\t%s\t%s@%s:%d\t%s\n", s.ID, s.Name, s.Username, s.Host, s.Port, dim(auth))
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "以 JSON 输出")
	return cmd
}

// profileFlags servers add / update 共用的参数
type profileFlags struct {
	name        string
	host        string
	port        int
	user        string
	password    string
	askPassword bool
	keyPath     string
	group       string
}

func (p *profileFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&p.name, "name", "", "显示名称")
	f.StringVar(&p.host, "host", "", "IP 或域名")
	f.IntVar(&p.port, "port", gateway.DefaultPort, "SSH 端口")
	f.StringVarP(&p.user, "user", "u", "", "登录用户")
	f.StringVar(&p.password, "password", "", "登录密码（建议使用 --ask-password）")
	f.BoolVar(&p.askPassword, "ask-password", false, "交互输入密码")
	f.StringVarP(&p.keyPath, "key", "i", "", "私钥路径")
	f.StringVarP(&p.group, "group", "g", "", "分组")
}

func (p *profileFlags) resolvePassword() error {
	if !p.askPassword {
		return nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return clierrors.Usage("--ask-password 需要在终端中使用")
	}
	fmt.Fprint(os.Stderr, "密码: ")
	pwd, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}
	p.password = string(pwd)
	return nil
}

func newServersAddCmd(a *app) *cobra.Command {
	var p profileFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "添加服务器",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(p.host) == "" || strings.TrimSpace(p.user) == "" {
				return clierrors.Usage("--host 与 --user 为必填项")
			}
			if err := p.resolvePassword(); err != nil {
				return err
			}
			orch, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			id, err := orch.Add(cmd.Context(), gateway.Profile{
				Name:     p.name,
				Host:     p.host,
				Port:     p.port,
				Username: p.user,
				Password: p.password,
				KeyPath:  p.keyPath,
				Group:    p.group,
			})
			if err != nil {
				return clierrors.FromSession("", err)
			}
			success("已添加服务器 %s", id)
			return nil
		},
	}
	p.register(cmd)
	return cmd
}

func newServersUpdateCmd(a *app) *cobra.Command {
	var p profileFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "修改服务器配置，只更新指定的参数",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := p.resolvePassword(); err != nil {
				return err
			}
			f := cmd.Flags()
			var u gateway.ProfileUpdate
			if f.Changed("name") {
				u.Name = &p.name
			}
			if f.Changed("host") {
				u.Host = &p.host
			}
			if f.Changed("port") {
				u.Port = &p.port
			}
			if f.Changed("user") {
				u.Username = &p.user
			}
			if f.Changed("password") || p.askPassword {
				u.Password = &p.password
			}
			if f.Changed("key") {
				u.KeyPath = &p.keyPath
			}
			if f.Changed("group") {
				u.Group = &p.group
			}
			orch, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := orch.Update(cmd.Context(), args[0], u); err != nil {
				return clierrors.FromSession(args[0], err)
			}
			success("已更新服务器 %s", args[0])
			return nil
		},
	}
	p.register(cmd)
	return cmd
}

func newServersRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"remove", "delete"},
		Short:   "删除服务器",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range args {
				if err := orch.Remove(cmd.Context(), id); err != nil {
					return clierrors.FromSession(id, err)
				}
				success("已删除服务器 %s", id)
			}
			return nil
		},
	}
}
