package main

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	clierrors "myssh/internal/errors"
	"myssh/internal/transfer"
)

// progressObserver 每完成一项推进一格
func progressObserver(total int, description string) (transfer.Observer, func()) {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
	obs := func(e transfer.Event) {
		switch e.Kind {
		case transfer.ItemStarted:
			bar.Describe(description + " " + dim(e.Path))
		case transfer.ItemFinished:
			_ = bar.Add(1)
		}
	}
	return obs, func() { _ = bar.Finish() }
}

func reportResult(op string, res transfer.Result) error {
	for _, f := range res.Failed {
		failure("%s: %s", f.Path, f.Error)
	}
	if res.Success {
		success("%s完成 %d 个文件", op, res.Count)
		return nil
	}
	return clierrors.New(clierrors.ExitGeneral, fmt.Sprintf("%s成功 %d 个，失败 %d 个", op, res.Count, res.FailCount))
}

func newUploadCmd(a *app) *cobra.Command {
	var remoteDir string
	var quiet bool
	cmd := &cobra.Command{
		Use:   "upload <id> <local>...",
		Short: "批量上传本地文件到远程目录",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, files := args[0], args[1:]
			if _, err := a.connect(cmd.Context(), id); err != nil {
				return err
			}
			var obs transfer.Observer
			done := func() {}
			if !quiet {
				obs, done = progressObserver(len(files), "上传")
			}
			res, err := a.coordinator(obs).UploadMany(cmd.Context(), id, files, remoteDir)
			done()
			if err != nil {
				return clierrors.FromSession(id, err)
			}
			return reportResult("上传", res)
		},
	}
	cmd.Flags().StringVarP(&remoteDir, "to", "t", ".", "远程目标目录")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "不显示进度条")
	return cmd
}

func newDownloadCmd(a *app) *cobra.Command {
	var localDir string
	var quiet bool
	cmd := &cobra.Command{
		Use:   "download <id> <remote>...",
		Short: "批量下载远程文件到本地目录",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, files := args[0], args[1:]
			if _, err := a.connect(cmd.Context(), id); err != nil {
				return err
			}
			var obs transfer.Observer
			done := func() {}
			if !quiet {
				obs, done = progressObserver(len(files), "下载")
			}
			res, err := a.coordinator(obs).DownloadMany(cmd.Context(), id, files, localDir)
			done()
			if err != nil {
				return clierrors.FromSession(id, err)
			}
			return reportResult("下载", res)
		},
	}
	cmd.Flags().StringVarP(&localDir, "to", "t", ".", "本地目标目录")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "不显示进度条")
	return cmd
}
