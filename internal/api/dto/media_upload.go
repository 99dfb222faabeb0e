package dto

// MediaUploadDTO 上传结果, Type 取自 MIME 大类
type MediaUploadDTO struct {
	URL         string `json:"url"`
	Type        string `json:"type"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}
