package handler

import (
	"github.com/dyann2003/cbgift/internal/storage"
	"github.com/gin-gonic/gin"
)

// FileHandler 文件上传处理器
type FileHandler struct {
	store *storage.FileStore
}

func NewFileHandler(store *storage.FileStore) *FileHandler {
	return &FileHandler{store: store}
}

// UploadedFile 上传文件信息
type UploadedFile struct {
	URL         string `json:"url"`
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// Upload 处理文件上传
// POST /files/upload
func (h *FileHandler) Upload(c *gin.Context) {
	if h.store == nil {
		badRequest(c, "文件存储未配置")
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, "无法解析上传文件: "+err.Error())
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		files = form.File["file"]
	}
	if len(files) == 0 {
		badRequest(c, "没有上传文件")
		return
	}

	var uploaded []UploadedFile
	for _, fileHeader := range files {
		src, err := fileHeader.Open()
		if err != nil {
			fail(c, err)
			return
		}
		contentType := fileHeader.Header.Get("Content-Type")
		url, err := h.store.Upload(c.Request.Context(), fileHeader.Filename, src, fileHeader.Size, contentType)
		src.Close()
		if err != nil {
			fail(c, err)
			return
		}
		uploaded = append(uploaded, UploadedFile{
			URL:         url,
			Filename:    fileHeader.Filename,
			Size:        fileHeader.Size,
			ContentType: contentType,
		})
	}
	ok(c, uploaded)
}
