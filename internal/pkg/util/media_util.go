package util

import (
	"Chatter/internal/pkg/consts"
	"bytes"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// DetectContentType 读取前 512 字节嗅探 MIME, 返回可继续完整读取的 reader
func DetectContentType(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", nil, err
	}
	head = head[:n]
	return http.DetectContentType(head), io.MultiReader(bytes.NewReader(head), r), nil
}

// MessageTypeFromMime 按 MIME 大类映射消息类型
func MessageTypeFromMime(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, consts.MimePrefixImage):
		return "image"
	case strings.HasPrefix(contentType, consts.MimePrefixVideo):
		return "video"
	case strings.HasPrefix(contentType, consts.MimePrefixAudio):
		return "audio"
	}
	return "file"
}

// ObjectName 生成对象存储路径 prefix/uuid.ext
func ObjectName(prefix, filename string) string {
	return path.Join(prefix, uuid.NewString()+strings.ToLower(path.Ext(filename)))
}

// SquareAvatar 居中裁剪并缩放为 size×size 的 JPEG
func SquareAvatar(r io.Reader, size int) ([]byte, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	thumb := imaging.Fill(img, size, size, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err = imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
