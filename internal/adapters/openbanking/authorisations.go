package openbanking

import (
	"context"
	"encoding/json"

	"github.com/kevin07696/openbanking-service/internal/domain/models"
)

// The authorisation sub-resource has the same shape under consents, payments and baskets.
// basePath is the parent resource path, e.g. psd2/consent/v1/consents/{id}.

func (c *Client) startAuthorization(ctx context.Context, family, resource, basePath string, headers []models.Header) (*models.AuthorizationResource, error) {
	body, err := c.post(ctx, family, basePath+"/authorisations", struct{}{}, headers...)
	if err != nil {
		return nil, err
	}

	var resp authorisationStartedJSON
	if err := decode(body, resource, "start authorisation", &resp); err != nil {
		return nil, err
	}

	status, err := models.ParseScaStatus(*resp.ScaStatus)
	if err != nil {
		return nil, err
	}

	return &models.AuthorizationResource{
		AuthorizationID:       *resp.AuthorisationID,
		ScaStatus:             status,
		AuthenticationMethods: authenticationMethods(resp.ScaMethods),
		Links:                 resp.Links.toModel(),
	}, nil
}

func (c *Client) authorizationIDs(ctx context.Context, family, resource, basePath string, headers []models.Header) ([]string, error) {
	body, err := c.get(ctx, family, basePath+"/authorisations", headers...)
	if err != nil {
		return nil, err
	}

	var resp authorisationIDsJSON
	if err := decode(body, resource, "list authorisations", &resp); err != nil {
		return nil, err
	}
	return resp.AuthorisationIDs, nil
}

func (c *Client) authorizationStatus(ctx context.Context, family, resource, basePath, authorizationID string, headers []models.Header) (*models.AuthorizationStatus, error) {
	body, err := c.get(ctx, family, basePath+"/authorisations/"+authorizationID, headers...)
	if err != nil {
		return nil, err
	}

	var resp authorisationStatusJSON
	if err := decode(body, resource, "authorisation status", &resp); err != nil {
		return nil, err
	}

	status, err := models.ParseScaStatus(*resp.ScaStatus)
	if err != nil {
		return nil, err
	}

	return &models.AuthorizationStatus{
		ScaStatus:     status,
		ChallengeData: resp.ChallengeData.toModel(),
		Messages:      errorMessages(resp.TppMessages),
	}, nil
}

func (c *Client) putUserData(ctx context.Context, family, resource, basePath, authorizationID, methodID string, headers []models.Header) (*models.PsuDataResponse, error) {
	body, err := c.put(ctx, family, basePath+"/authorisations/"+authorizationID,
		psuDataRequestJSON{AuthenticationMethodID: methodID}, headers...)
	if err != nil {
		return nil, err
	}

	var resp psuDataJSON
	if err := decode(body, resource, "update PSU data", &resp); err != nil {
		return nil, err
	}

	status, err := models.ParseScaStatus(*resp.ScaStatus)
	if err != nil {
		return nil, err
	}

	return &models.PsuDataResponse{
		ScaStatus:     status,
		ChosenMethod:  chosenMethod(resp.ChosenScaMethod),
		PsuMessage:    resp.PsuMessage,
		ChallengeData: resp.ChallengeData.toModel(),
		Messages:      errorMessages(resp.TppMessages),
		Links:         resp.Links.toModel(),
	}, nil
}

// chosenMethod decodes the optional chosenScaMethod; anything undecodable is treated as absent
func chosenMethod(raw json.RawMessage) *models.AuthenticationMethod {
	if len(raw) == 0 {
		return nil
	}
	methods := authenticationMethods([]json.RawMessage{raw})
	if len(methods) == 0 {
		return nil
	}
	return &methods[0]
}
