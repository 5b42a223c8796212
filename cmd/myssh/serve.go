package main

import (
	"github.com/spf13/cobra"

	"myssh/internal/auth"
	"myssh/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 Web API（需先设置主密码）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.settings.HTTPAddr
			}
			srv := server.New(orch, a.coordinator(nil), auth.New(a.settings.AuthDir()), server.Options{Logger: a.log})
			info("myssh Web API: http://127.0.0.1%s", addr)
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "监听地址，例如 :21008（默认取 http.addr 配置）")
	return cmd
}
