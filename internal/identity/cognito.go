package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

// CognitoAPI is the subset of the Cognito user pool client the provider uses.
type CognitoAPI interface {
	InitiateAuth(ctx context.Context, in *cognitoidentityprovider.InitiateAuthInput, opts ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error)
	SignUp(ctx context.Context, in *cognitoidentityprovider.SignUpInput, opts ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.SignUpOutput, error)
	GlobalSignOut(ctx context.Context, in *cognitoidentityprovider.GlobalSignOutInput, opts ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.GlobalSignOutOutput, error)
	UpdateUserAttributes(ctx context.Context, in *cognitoidentityprovider.UpdateUserAttributesInput, opts ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.UpdateUserAttributesOutput, error)
	GetUser(ctx context.Context, in *cognitoidentityprovider.GetUserInput, opts ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.GetUserOutput, error)
}

// CognitoProvider authenticates against an AWS Cognito user pool. Session
// tokens are Cognito access tokens.
type CognitoProvider struct {
	api      CognitoAPI
	clientID string
}

// NewCognitoProvider wraps an existing client.
func NewCognitoProvider(api CognitoAPI, clientID string) *CognitoProvider {
	return &CognitoProvider{api: api, clientID: clientID}
}

// NewCognitoProviderFromEnv loads AWS credentials from the default chain.
func NewCognitoProviderFromEnv(ctx context.Context, region, clientID string) (*CognitoProvider, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return NewCognitoProvider(cognitoidentityprovider.NewFromConfig(cfg), clientID), nil
}

func (p *CognitoProvider) SignIn(ctx context.Context, email, password string) (State, error) {
	email = normalizeEmail(email)
	out, err := p.api.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(p.clientID),
		AuthParameters: map[string]string{
			"USERNAME": email,
			"PASSWORD": password,
		},
	})
	if err != nil {
		return Anonymous, mapCognitoError(err)
	}
	if out.AuthenticationResult == nil || out.AuthenticationResult.AccessToken == nil {
		return Anonymous, unknownError("sign-in requires an additional challenge", nil)
	}
	return p.stateFor(ctx, aws.ToString(out.AuthenticationResult.AccessToken))
}

// SignUp registers the user and signs in immediately. Pools that require
// confirmation fail the sign-in with a NotAuthorized error.
func (p *CognitoProvider) SignUp(ctx context.Context, email, password string) (State, error) {
	email = normalizeEmail(email)
	_, err := p.api.SignUp(ctx, &cognitoidentityprovider.SignUpInput{
		ClientId: aws.String(p.clientID),
		Username: aws.String(email),
		Password: aws.String(password),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: aws.String(email)},
		},
	})
	if err != nil {
		return Anonymous, mapCognitoError(err)
	}
	return p.SignIn(ctx, email, password)
}

func (p *CognitoProvider) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	_, err := p.api.GlobalSignOut(ctx, &cognitoidentityprovider.GlobalSignOutInput{AccessToken: aws.String(token)})
	if err != nil {
		return mapCognitoError(err)
	}
	return nil
}

func (p *CognitoProvider) SetDisplayName(ctx context.Context, state State, name string) error {
	if !state.Authenticated() {
		return ErrInvalidToken
	}
	_, err := p.api.UpdateUserAttributes(ctx, &cognitoidentityprovider.UpdateUserAttributesInput{
		AccessToken: aws.String(state.Token),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("name"), Value: aws.String(name)},
		},
	})
	if err != nil {
		return mapCognitoError(err)
	}
	state.Identity.DisplayName = name
	return nil
}

func (p *CognitoProvider) Verify(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	out, err := p.api.GetUser(ctx, &cognitoidentityprovider.GetUserInput{AccessToken: aws.String(token)})
	if err != nil {
		var notAuthorized *types.NotAuthorizedException
		if errors.As(err, &notAuthorized) {
			return nil, ErrInvalidToken
		}
		return nil, mapCognitoError(err)
	}
	return cognitoIdentity(out), nil
}

func (p *CognitoProvider) stateFor(ctx context.Context, token string) (State, error) {
	id, err := p.Verify(ctx, token)
	if err != nil {
		return Anonymous, err
	}
	return State{Identity: id, Token: token}, nil
}

func cognitoIdentity(out *cognitoidentityprovider.GetUserOutput) *Identity {
	id := &Identity{ID: aws.ToString(out.Username)}
	for _, attr := range out.UserAttributes {
		value := aws.ToString(attr.Value)
		switch aws.ToString(attr.Name) {
		case "sub":
			id.ID = value
		case "email":
			id.Email = value
		case "name":
			id.DisplayName = value
		case "picture":
			id.PhotoURL = value
		}
	}
	return id
}

// mapCognitoError converts Cognito exceptions into AuthError codes.
func mapCognitoError(err error) error {
	var (
		notAuthorized *types.NotAuthorizedException
		notFound      *types.UserNotFoundException
		exists        *types.UsernameExistsException
		weak          *types.InvalidPasswordException
		invalidParam  *types.InvalidParameterException
	)
	switch {
	case errors.As(err, &notAuthorized):
		return &AuthError{Code: CodeInvalidCredentials, Message: ErrInvalidCredentials.Message, Err: err}
	case errors.As(err, &notFound):
		return &AuthError{Code: CodeUserNotFound, Message: ErrUserNotFound.Message, Err: err}
	case errors.As(err, &exists):
		return &AuthError{Code: CodeEmailInUse, Message: ErrEmailInUse.Message, Err: err}
	case errors.As(err, &weak):
		return &AuthError{Code: CodeWeakPassword, Message: ErrWeakPassword.Message, Err: err}
	case errors.As(err, &invalidParam):
		if strings.Contains(strings.ToLower(invalidParam.ErrorMessage()), "email") {
			return &AuthError{Code: CodeInvalidEmail, Message: ErrInvalidEmail.Message, Err: err}
		}
		return unknownError(invalidParam.ErrorMessage(), err)
	default:
		return unknownError("", err)
	}
}
