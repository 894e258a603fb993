package authorization

import (
	"github.com/kevin07696/openbanking-service/internal/domain"
	"github.com/kevin07696/openbanking-service/internal/domain/models"
)

// Mobile BankID method ids offered by the banks
const (
	MethodMBID                = "mbid"
	MethodMBIDSameDevice      = "mbid_same_device"
	MethodMBIDAnimatedQRToken = "mbid_animated_qr_token"
	MethodMBIDAnimatedQRImage = "mbid_animated_qr_image"
)

var (
	sameDevicePreference  = []string{MethodMBIDSameDevice, MethodMBID}
	otherDevicePreference = []string{MethodMBIDAnimatedQRToken, MethodMBIDAnimatedQRImage, MethodMBID, MethodMBIDSameDevice}
)

// SelectMethod picks the authentication method to use among those offered.
// On the PSU's own device the app is opened directly; otherwise animated QR codes are preferred.
func SelectMethod(offered []models.AuthenticationMethod, sameDevice bool) (models.AuthenticationMethod, error) {
	preference := otherDevicePreference
	if sameDevice {
		preference = sameDevicePreference
	}

	for _, id := range preference {
		for _, m := range offered {
			if m.MethodID == id {
				return m, nil
			}
		}
	}
	return models.AuthenticationMethod{}, domain.ErrNoAuthenticationMethod
}

// IsQRMethod reports whether the method is completed by scanning a QR code
func IsQRMethod(methodID string) bool {
	return methodID == MethodMBIDAnimatedQRToken || methodID == MethodMBIDAnimatedQRImage
}
