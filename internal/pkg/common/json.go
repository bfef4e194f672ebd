package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// ParseJSON 解析 JSON 字符串到結構體
func ParseJSON(data string, v interface{}) error {
	return decodeJSON(strings.NewReader(data), v)
}

// ParseJSONBytes 解析 JSON 位元組切片到結構體
func ParseJSONBytes(data []byte, v interface{}) error {
	return decodeJSON(bytes.NewReader(data), v)
}

func decodeJSON(r io.Reader, v interface{}) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := dec.Decode(v); err != nil {
		return err
	}

	// 確保沒有多餘資料
	for {
		t, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		// 若讀到額外 token，視為錯誤
		if t != nil {
			return fmt.Errorf("unexpected extra JSON data")
		}
	}
}

var codeFencePattern = regexp.MustCompile("```(?:json)?\\s*")

// ExtractJSONObject 從模型輸出中擷取第一個 { 到最後一個 } 的 JSON 物件
// 會先移除 markdown code block 標記
func ExtractJSONObject(raw string) string {
	content := strings.TrimSpace(codeFencePattern.ReplaceAllString(raw, ""))
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start != -1 && end != -1 && end > start {
		return content[start : end+1]
	}
	return content
}
