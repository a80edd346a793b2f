package assets

import "asset-tokenization-kit/internal/domain"

// Portal contract names per asset type. Mutations are named Contract+Method.
var contractNames = map[domain.AssetType]string{
	domain.AssetTypeBond:           "Bond",
	domain.AssetTypeCryptocurrency: "CryptoCurrency",
	domain.AssetTypeEquity:         "Equity",
	domain.AssetTypeFund:           "Fund",
	domain.AssetTypeStablecoin:     "StableCoin",
	domain.AssetTypeDeposit:        "Deposit",
}

const (
	contractERC20          = "ERC20"
	contractFixedYield     = "FixedYield"
	contractFixedYieldFact = "FixedYieldFactory"
	contractAirdropFactory = "AirdropFactory"
)

const (
	methodCreate                = "Create"
	methodMint                  = "Mint"
	methodBurn                  = "Burn"
	methodTransfer              = "Transfer"
	methodApprove               = "Approve"
	methodPause                 = "Pause"
	methodUnpause               = "Unpause"
	methodBlockUser             = "BlockUser"
	methodUnblockUser           = "UnblockUser"
	methodFreeze                = "Freeze"
	methodGrantRole             = "GrantRole"
	methodRevokeRole            = "RevokeRole"
	methodMature                = "Mature"
	methodRedeem                = "Redeem"
	methodTopUpUnderlying       = "TopUpUnderlyingAsset"
	methodWithdrawUnderlying    = "WithdrawUnderlyingAsset"
	methodUpdateCollateral      = "UpdateCollateral"
	methodWithdrawToken         = "WithdrawToken"
	methodClaimYield            = "ClaimYield"
	methodDeployStandardAirdrop = "DeployStandardAirdrop"
	methodDeployVestingAirdrop  = "DeployVestingAirdrop"
	methodDeployPushAirdrop     = "DeployPushAirdrop"
)

func contractFor(t domain.AssetType) string {
	return contractNames[t]
}

func factoryFor(t domain.AssetType) string {
	return contractNames[t] + "Factory"
}
