package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	strconv2 "github.com/savsgio/gotils/strconv"

	"decisiondeck/internal/models"
)

// FingerprintIP 票面留存的客户端地址指纹，不落明文
func FingerprintIP(secret, ip string) string {
	mac := hmac.New(sha256.New, strconv2.S2B(secret))
	mac.Write(strconv2.S2B(ip))
	return hex.EncodeToString(mac.Sum(nil))
}

// ClassifyDevice 从 User-Agent 粗分设备类别
func ClassifyDevice(userAgent string) models.DeviceClass {
	ua := strings.ToLower(userAgent)
	switch {
	case ua == "":
		return models.DeviceUnknown
	case strings.Contains(ua, "bot") || strings.Contains(ua, "crawler") || strings.Contains(ua, "spider"):
		return models.DeviceBot
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet"):
		return models.DeviceTablet
	case strings.Contains(ua, "mobile") || strings.Contains(ua, "android") || strings.Contains(ua, "iphone"):
		return models.DeviceMobile
	case strings.Contains(ua, "mozilla") || strings.Contains(ua, "windows") ||
		strings.Contains(ua, "macintosh") || strings.Contains(ua, "linux"):
		return models.DeviceDesktop
	default:
		return models.DeviceUnknown
	}
}
