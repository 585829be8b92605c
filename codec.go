package main

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// 请求与响应是普通Go结构体，使用JSON编解码替换connect默认的protobuf编解码
type jsonCodec struct{}

var _ connect.Codec = jsonCodec{}

func (jsonCodec) Name() string {
	return "json"
}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(b []byte, v any) error {
	return json.Unmarshal(b, v)
}
