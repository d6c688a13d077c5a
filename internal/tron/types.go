package tron

// Upstream response shapes. TronGrid and TronScan return differently shaped
// payloads for the same transaction; both normalize into
// models.ChainTransaction.

type tronGridResponse struct {
	Data []tronGridTransaction `json:"data"`
}

type tronGridTransaction struct {
	TxID        string `json:"txID"`
	BlockNumber int64  `json:"blockNumber"`
	Ret         []struct {
		ContractRet string `json:"contractRet"`
	} `json:"ret"`
	RawData struct {
		Timestamp int64 `json:"timestamp"`
		Contract  []struct {
			Type      string `json:"type"`
			Parameter struct {
				Value struct {
					Amount       int64  `json:"amount"`
					OwnerAddress string `json:"owner_address"`
					ToAddress    string `json:"to_address"`
				} `json:"value"`
			} `json:"parameter"`
		} `json:"contract"`
	} `json:"raw_data"`
}

// transferContract is the plain TRX transfer contract type on both APIs
// (TronScan reports it as contractType 1).
const (
	transferContractType   = "TransferContract"
	tronScanTransferTypeID = 1
)

type tronScanTransaction struct {
	Hash         string `json:"hash"`
	Block        int64  `json:"block"`
	Timestamp    int64  `json:"timestamp"`
	Confirmed    bool   `json:"confirmed"`
	ContractRet  string `json:"contractRet"`
	ContractType int    `json:"contractType"`
	OwnerAddress string `json:"ownerAddress"`
	ToAddress    string `json:"toAddress"`
	Amount       int64  `json:"amount"`
	TRC20Xfers   []struct {
		FromAddress string `json:"from_address"`
		ToAddress   string `json:"to_address"`
		Quant       string `json:"quant"`
	} `json:"trc20TransferInfo"`
}
