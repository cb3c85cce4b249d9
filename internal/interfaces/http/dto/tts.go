package dto

// TTSChunkRequest 语音切分请求
type TTSChunkRequest struct {
	Text string `json:"text" binding:"required"`
	// ChunkSize 不超过服务端上限，0 表示使用上限
	ChunkSize int `json:"chunk_size"`
}

// TTSChunkResponse 语音切分结果
type TTSChunkResponse struct {
	Chunks []string `json:"chunks"`
	Count  int      `json:"count"`
	Limit  int      `json:"limit"`
}
