package ssh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/sftp"

	"myssh/internal/models"
)

// ErrInvalidMode 权限字符串不是合法的八进制
var ErrInvalidMode = errors.New("invalid file mode")

// joinRemotePath 远程路径统一使用 /
func joinRemotePath(base, name string) string {
	if base == "" {
		return name
	}
	if name == "" {
		return base
	}
	return strings.TrimSuffix(base, "/") + "/" + name
}

// ListDir 读取远程目录；目录在前，同类按名称排序
func ListDir(c *sftp.Client, dir string) ([]models.FileEntry, error) {
	if dir == "" {
		dir = "."
	}
	infos, err := c.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("读取目录 %s 失败: %w", dir, err)
	}
	base := dir
	if dir == "." {
		if wd, err := c.Getwd(); err == nil && wd != "" {
			base = wd
		}
	}
	entries := make([]models.FileEntry, 0, len(infos))
	for _, fi := range infos {
		entries = append(entries, toEntry(base, fi))
	}
	sortEntries(entries)
	return entries, nil
}

func toEntry(dir string, fi os.FileInfo) models.FileEntry {
	typ := models.FileTypeFile
	if fi.IsDir() {
		typ = models.FileTypeDirectory
	}
	return models.FileEntry{
		Name:     fi.Name(),
		Type:     typ,
		Size:     fi.Size(),
		Modified: fi.ModTime().UTC().Format(time.RFC3339),
		Path:     path.Clean(joinRemotePath(dir, fi.Name())),
		Mode:     fi.Mode().String(),
	}
}

func sortEntries(entries []models.FileEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		di := entries[i].Type == models.FileTypeDirectory
		dj := entries[j].Type == models.FileTypeDirectory
		if di != dj {
			return di
		}
		return entries[i].Name < entries[j].Name
	})
}

// Upload 把本地文件上传为 remoteDir/<文件名>；复制失败时删除不完整的远程文件
func Upload(ctx context.Context, c *sftp.Client, localPath, remoteDir string) (string, error) {
	src, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("打开本地文件失败: %w", err)
	}
	defer src.Close()
	if fi, err := src.Stat(); err == nil && fi.IsDir() {
		return "", fmt.Errorf("%s 是目录", localPath)
	}

	remotePath := joinRemotePath(remoteDir, filepath.Base(localPath))
	dst, err := c.Create(remotePath)
	if err != nil {
		return "", fmt.Errorf("创建远程文件 %s 失败: %w", remotePath, err)
	}
	if _, err := io.Copy(dst, &ctxReader{ctx: ctx, r: src}); err != nil {
		_ = dst.Close()
		_ = c.Remove(remotePath)
		return "", fmt.Errorf("上传 %s 失败: %w", localPath, err)
	}
	if err := dst.Close(); err != nil {
		_ = c.Remove(remotePath)
		return "", fmt.Errorf("上传 %s 失败: %w", localPath, err)
	}
	return remotePath, nil
}

// Download 下载远程文件到 localPath；失败时删除不完整的本地文件
func Download(ctx context.Context, c *sftp.Client, remotePath, localPath string) error {
	src, err := c.Open(remotePath)
	if err != nil {
		return fmt.Errorf("打开远程文件 %s 失败: %w", remotePath, err)
	}
	defer src.Close()

	if dir := filepath.Dir(localPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建本地目录失败: %w", err)
		}
	}
	dst, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("创建本地文件失败: %w", err)
	}
	if _, err := io.Copy(dst, &ctxReader{ctx: ctx, r: src}); err != nil {
		_ = dst.Close()
		_ = os.Remove(localPath)
		return fmt.Errorf("下载 %s 失败: %w", remotePath, err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(localPath)
		return fmt.Errorf("下载 %s 失败: %w", remotePath, err)
	}
	return nil
}

// Mkdir 递归创建目录
func Mkdir(c *sftp.Client, p string) error {
	if err := c.MkdirAll(p); err != nil {
		return fmt.Errorf("创建目录 %s 失败: %w", p, err)
	}
	return nil
}

// Remove 删除文件或目录（目录递归删除），遇到第一个错误即返回
func Remove(c *sftp.Client, paths ...string) error {
	for _, p := range paths {
		fi, err := c.Lstat(p)
		if err != nil {
			return fmt.Errorf("删除 %s 失败: %w", p, err)
		}
		if fi.IsDir() {
			err = removeDir(c, p)
		} else {
			err = c.Remove(p)
		}
		if err != nil {
			return fmt.Errorf("删除 %s 失败: %w", p, err)
		}
	}
	return nil
}

func removeDir(c *sftp.Client, dir string) error {
	infos, err := c.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, fi := range infos {
		p := joinRemotePath(dir, fi.Name())
		if fi.IsDir() {
			err = removeDir(c, p)
		} else {
			err = c.Remove(p)
		}
		if err != nil {
			return err
		}
	}
	return c.RemoveDirectory(dir)
}

// Rename 重命名或移动
func Rename(c *sftp.Client, oldPath, newPath string) error {
	if err := c.Rename(oldPath, newPath); err != nil {
		return fmt.Errorf("重命名 %s 失败: %w", oldPath, err)
	}
	return nil
}

// Chmod 修改权限，mode 为八进制字符串，如 "755" 或 "0644"
func Chmod(c *sftp.Client, p, mode string) error {
	m, err := ParseMode(mode)
	if err != nil {
		return err
	}
	if err := c.Chmod(p, m); err != nil {
		return fmt.Errorf("修改权限 %s 失败: %w", p, err)
	}
	return nil
}

// ParseMode 解析三位或四位八进制权限
func ParseMode(s string) (os.FileMode, error) {
	s = strings.TrimSpace(s)
	if len(s) < 3 || len(s) > 4 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil || v > 0o7777 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
	m := os.FileMode(v & 0o777)
	if v&0o4000 != 0 {
		m |= os.ModeSetuid
	}
	if v&0o2000 != 0 {
		m |= os.ModeSetgid
	}
	if v&0o1000 != 0 {
		m |= os.ModeSticky
	}
	return m, nil
}

// ctxReader 每次读取前检查 context，使大文件复制可以被取消
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
