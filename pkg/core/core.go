package core

const (
	KindVideo = "video"

	CodecJPEG = "JPEG" // payloadType: 26
)

const PayloadTypeJPEG byte = 26

// ClockRate of video RTP timestamps
const ClockRate = 90000
