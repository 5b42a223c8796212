package server

import (
	"net/http"

	"myssh/internal/models"
)

// UploadReq 批量上传本机文件到远程目录
type UploadReq struct {
	LocalPaths []string `json:"localPaths"`
	RemotePath string   `json:"remotePath"`
}

// DownloadReq 批量下载远程文件到本机目录
type DownloadReq struct {
	RemotePaths []string `json:"remotePaths"`
	LocalPath   string   `json:"localPath"`
}

// PathReq 单个路径
type PathReq struct {
	Path string `json:"path"`
}

// PathsReq 多个路径
type PathsReq struct {
	Paths []string `json:"paths"`
}

// RenameReq 重命名
type RenameReq struct {
	OldPath string `json:"oldPath"`
	NewPath string `json:"newPath"`
}

// ChmodReq 修改权限，mode 为八进制字符串
type ChmodReq struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
}

// ExecReq 执行命令
type ExecReq struct {
	Command string `json:"command"`
}

// ChatReq 向 AI 助手提问
type ChatReq struct {
	Question string               `json:"question"`
	History  []models.ChatMessage `json:"history"`
}

func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Query().Get("path")
	if p == "" {
		p = "."
	}
	entries, err := s.orch.Files(r.PathValue("id")).ListDirectory(r.Context(), p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if entries == nil {
		entries = []models.FileEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	var req UploadReq
	if !decode(w, r, &req) {
		return
	}
	if req.RemotePath == "" {
		writeError(w, http.StatusBadRequest, "remotePath is required")
		return
	}
	res, err := s.xfer.UploadMany(r.Context(), r.PathValue("id"), req.LocalPaths, req.RemotePath)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	var req DownloadReq
	if !decode(w, r, &req) {
		return
	}
	if req.LocalPath == "" {
		writeError(w, http.StatusBadRequest, "localPath is required")
		return
	}
	res, err := s.xfer.DownloadMany(r.Context(), r.PathValue("id"), req.RemotePaths, req.LocalPath)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) mkdir(w http.ResponseWriter, r *http.Request) {
	var req PathReq
	if !decode(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	if err := s.orch.Files(r.PathValue("id")).CreateDirectory(r.Context(), req.Path); err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w)
}

func (s *Server) deletePaths(w http.ResponseWriter, r *http.Request) {
	var req PathsReq
	if !decode(w, r, &req) {
		return
	}
	if err := s.orch.Files(r.PathValue("id")).Delete(r.Context(), req.Paths...); err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w)
}

func (s *Server) rename(w http.ResponseWriter, r *http.Request) {
	var req RenameReq
	if !decode(w, r, &req) {
		return
	}
	if req.OldPath == "" || req.NewPath == "" {
		writeError(w, http.StatusBadRequest, "oldPath and newPath are required")
		return
	}
	if err := s.orch.Files(r.PathValue("id")).Rename(r.Context(), req.OldPath, req.NewPath); err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w)
}

func (s *Server) chmod(w http.ResponseWriter, r *http.Request) {
	var req ChmodReq
	if !decode(w, r, &req) {
		return
	}
	if req.Path == "" || req.Mode == "" {
		writeError(w, http.StatusBadRequest, "path and mode are required")
		return
	}
	if err := s.orch.Files(r.PathValue("id")).Chmod(r.Context(), req.Path, req.Mode); err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w)
}

func (s *Server) exec(w http.ResponseWriter, r *http.Request) {
	var req ExecReq
	if !decode(w, r, &req) {
		return
	}
	if req.Command == "" {
		writeError(w, http.StatusBadRequest, "command is required")
		return
	}
	res, err := s.orch.Files(r.PathValue("id")).Execute(r.Context(), req.Command)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) monitor(w http.ResponseWriter, r *http.Request) {
	sample, err := s.orch.Files(r.PathValue("id")).MonitorSample(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sample)
}

func (s *Server) aiChat(w http.ResponseWriter, r *http.Request) {
	var req ChatReq
	if !decode(w, r, &req) {
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	reply, err := s.orch.Files(r.PathValue("id")).AIChat(r.Context(), req.Question, req.History)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) aiActions(w http.ResponseWriter, r *http.Request) {
	actions, err := s.orch.Files(r.PathValue("id")).AIQuickActions(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, actions)
}
